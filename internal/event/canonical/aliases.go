package canonical

import "civreg/internal/event/models"

// Attribute describes one logical field of an event type: its canonical key,
// the historical aliases that may carry its value (priority order, canonical
// key first), and whether it is date-typed and required for completeness.
//
// The tables below are data on purpose: new aliases are added here, never in
// logic.
type Attribute struct {
	Name     string
	Aliases  []string
	Date     bool
	Required bool
}

// IdentityField marks a canonical attribute as holding a national identity
// number. Label feeds conflict messages; ExpectedSex is set when the role the
// field names implies a sex (used by the marriage consistency check and by
// cross-type sex inference); NameAttr is the attribute carrying the person's
// name for the advisory wrong-person check.
type IdentityField struct {
	Attr        string
	Label       string
	ExpectedSex string
	NameAttr    string
}

// registrationAttributes are shared by every event type. Validation runs
// before fallback derivation, so a submitter must provide these explicitly.
var registrationAttributes = []Attribute{
	{Name: "registrationRegion", Aliases: []string{"registrationRegion", "regRegion"}, Required: true},
	{Name: "registrationZone", Aliases: []string{"registrationZone", "regZone"}, Required: true},
	{Name: "registrationWoreda", Aliases: []string{"registrationWoreda", "regWoreda"}, Required: true},
	{Name: "registrationCity", Aliases: []string{"registrationCity", "regCity"}},
	{Name: "registrationSubCity", Aliases: []string{"registrationSubCity", "registrationSubcity", "regSubCity"}},
	{Name: "registrationKebele", Aliases: []string{"registrationKebele", "regKebele"}, Required: true},
	{Name: "registrationDate", Aliases: []string{"registrationDate", "dateOfRegistration"}, Date: true},
}

func placeAttributes(prefix string) []Attribute {
	return []Attribute{
		{Name: prefix + "Region", Aliases: []string{prefix + "Region"}},
		{Name: prefix + "Zone", Aliases: []string{prefix + "Zone"}},
		{Name: prefix + "Woreda", Aliases: []string{prefix + "Woreda"}},
		{Name: prefix + "City", Aliases: []string{prefix + "City"}},
		{Name: prefix + "SubCity", Aliases: []string{prefix + "SubCity", prefix + "Subcity"}},
		{Name: prefix + "Kebele", Aliases: []string{prefix + "Kebele"}},
	}
}

var birthAttributes = join(
	[]Attribute{
		{Name: "childName", Aliases: []string{"childName", "childNameEn", "childFullNameEn", "childNameAm", "childFullNameAm"}, Required: true},
		{Name: "fatherName", Aliases: []string{"fatherName", "fatherNameEn", "fatherFullNameEn", "fatherNameAm", "fatherFullNameAm"}, Required: true},
		{Name: "grandfatherName", Aliases: []string{"grandfatherName", "grandfatherNameEn", "grandFatherNameEn", "grandfatherNameAm"}, Required: true},
		{Name: "sex", Aliases: []string{"sex", "childSex", "gender"}, Required: true},
		{Name: "birthDate", Aliases: []string{"birthDate", "dateOfBirth", "childBirthDate"}, Date: true, Required: true},
		{Name: "birthPlace", Aliases: []string{"birthPlace", "birthPlaceEn", "birthPlaceAm", "placeOfBirth"}, Required: true},
		{Name: "motherName", Aliases: []string{"motherName", "motherNameEn", "motherFullNameEn", "motherNameAm", "motherFullNameAm"}, Required: true},
		{Name: "motherFatherName", Aliases: []string{"motherFatherName", "motherFatherNameEn", "mothersFatherNameEn", "motherFatherNameAm"}, Required: true},
		{Name: "childIdNumber", Aliases: []string{"childIdNumber", "childIdNumberAm", "childIdNumberEn"}},
		{Name: "motherIdNumber", Aliases: []string{"motherIdNumber", "motherIdNumberAm"}},
		{Name: "fatherIdNumber", Aliases: []string{"fatherIdNumber", "fatherIdNumberAm"}},
	},
	placeAttributes("birthPlace"),
	registrationAttributes,
)

var marriageAttributes = join(
	[]Attribute{
		{Name: "husbandName", Aliases: []string{"husbandName", "husbandNameEn", "husbandFullNameEn", "husbandNameAm", "husbandFullNameAm"}, Required: true},
		{Name: "husbandFatherName", Aliases: []string{"husbandFatherName", "husbandFatherNameEn", "husbandFatherNameAm"}, Required: true},
		{Name: "wifeName", Aliases: []string{"wifeName", "wifeNameEn", "wifeFullNameEn", "wifeNameAm", "wifeFullNameAm"}, Required: true},
		{Name: "wifeFatherName", Aliases: []string{"wifeFatherName", "wifeFatherNameEn", "wifeFatherNameAm"}, Required: true},
		{Name: "marriageDate", Aliases: []string{"marriageDate", "dateOfMarriage"}, Date: true, Required: true},
		{Name: "marriagePlace", Aliases: []string{"marriagePlace", "marriagePlaceEn", "marriagePlaceAm", "placeOfMarriage"}, Required: true},
		{Name: "husbandIdNumber", Aliases: []string{"husbandIdNumber", "husbandIdNumberAm", "husbandIdNumberEn"}},
		{Name: "wifeIdNumber", Aliases: []string{"wifeIdNumber", "wifeIdNumberAm", "wifeIdNumberEn"}},
	},
	placeAttributes("marriagePlace"),
	registrationAttributes,
)

var deathAttributes = join(
	[]Attribute{
		{Name: "deceasedName", Aliases: []string{"deceasedName", "deceasedNameEn", "deceasedFullNameEn", "deceasedNameAm", "deceasedFullNameAm"}, Required: true},
		{Name: "deceasedFatherName", Aliases: []string{"deceasedFatherName", "deceasedFatherNameEn", "deceasedFatherNameAm"}, Required: true},
		{Name: "sex", Aliases: []string{"sex", "deceasedSex", "gender"}, Required: true},
		{Name: "deathDate", Aliases: []string{"deathDate", "dateOfDeath"}, Date: true, Required: true},
		{Name: "deathPlace", Aliases: []string{"deathPlace", "deathPlaceEn", "deathPlaceAm", "placeOfDeath"}, Required: true},
		{Name: "causeOfDeath", Aliases: []string{"causeOfDeath", "deathCause"}},
		{Name: "deceasedIdNumber", Aliases: []string{"deceasedIdNumber", "deceasedIdNumberAm"}},
	},
	placeAttributes("deathPlace"),
	registrationAttributes,
)

var divorceAttributes = join(
	[]Attribute{
		{Name: "spouseOneName", Aliases: []string{"spouseOneName", "spouseOneNameEn", "spouseOneNameAm", "spouse1Name"}, Required: true},
		{Name: "spouseTwoName", Aliases: []string{"spouseTwoName", "spouseTwoNameEn", "spouseTwoNameAm", "spouse2Name"}, Required: true},
		{Name: "divorceDate", Aliases: []string{"divorceDate", "dateOfDivorce"}, Date: true, Required: true},
		{Name: "divorcePlace", Aliases: []string{"divorcePlace", "divorcePlaceEn", "divorcePlaceAm", "placeOfDivorce"}, Required: true},
		{Name: "courtCaseNumber", Aliases: []string{"courtCaseNumber", "caseNumber"}},
		{Name: "spouseOneIdNumber", Aliases: []string{"spouseOneIdNumber", "spouseOneIdNumberAm", "spouse1IdNumber"}},
		{Name: "spouseTwoIdNumber", Aliases: []string{"spouseTwoIdNumber", "spouseTwoIdNumberAm", "spouse2IdNumber"}},
	},
	placeAttributes("divorcePlace"),
	registrationAttributes,
)

var attributesByType = map[models.EventType][]Attribute{
	models.EventBirth:    birthAttributes,
	models.EventMarriage: marriageAttributes,
	models.EventDeath:    deathAttributes,
	models.EventDivorce:  divorceAttributes,
}

var identityFieldsByType = map[models.EventType][]IdentityField{
	models.EventBirth: {
		{Attr: "childIdNumber", Label: "child", NameAttr: "childName"},
	},
	models.EventMarriage: {
		{Attr: "wifeIdNumber", Label: "wife", ExpectedSex: "female", NameAttr: "wifeName"},
		{Attr: "husbandIdNumber", Label: "husband", ExpectedSex: "male", NameAttr: "husbandName"},
	},
	models.EventDeath: {
		{Attr: "deceasedIdNumber", Label: "deceased", NameAttr: "deceasedName"},
	},
	models.EventDivorce: {
		{Attr: "spouseOneIdNumber", Label: "first spouse", NameAttr: "spouseOneName"},
		{Attr: "spouseTwoIdNumber", Label: "second spouse", NameAttr: "spouseTwoName"},
	},
}

var eventDateAttrByType = map[models.EventType]string{
	models.EventBirth:    "birthDate",
	models.EventMarriage: "marriageDate",
	models.EventDeath:    "deathDate",
	models.EventDivorce:  "divorceDate",
}

var placePrefixByType = map[models.EventType]string{
	models.EventBirth:    "birthPlace",
	models.EventMarriage: "marriagePlace",
	models.EventDeath:    "deathPlace",
	models.EventDivorce:  "divorcePlace",
}

// Attributes returns the full attribute table for an event type.
func Attributes(t models.EventType) []Attribute {
	return attributesByType[t]
}

// RequiredGroups returns the completeness field groups for an event type.
func RequiredGroups(t models.EventType) []Attribute {
	var out []Attribute
	for _, attr := range attributesByType[t] {
		if attr.Required {
			out = append(out, attr)
		}
	}
	return out
}

// IdentityFields returns the declared identity-number fields for an event type.
func IdentityFields(t models.EventType) []IdentityField {
	return identityFieldsByType[t]
}

// EventDateAttr returns the canonical name of the primary event date.
func EventDateAttr(t models.EventType) string {
	return eventDateAttrByType[t]
}

func join(lists ...[]Attribute) []Attribute {
	var out []Attribute
	for _, l := range lists {
		out = append(out, l...)
	}
	return out
}
