// Copyright (c) 2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

package elements

// Element type tags known to the default registry
const (
	TextfieldType  = "textfield"
	TextareaType   = "textarea"
	EmailType      = "email"
	NumberType     = "number"
	TelType        = "tel"
	URLType        = "url"
	DateType       = "date"
	PasswordType   = "password"
	HiddenType     = "hidden"
	ValueType      = "value"
	SelectType     = "select"
	RadiosType     = "radios"
	CheckboxType   = "checkbox"
	CheckboxesType = "checkboxes"
	MarkupType     = "markup"
	ContainerType  = "container"
	DetailsType    = "details"
	FieldsetType   = "fieldset"
	SectionType    = "section"
	FlexboxType    = "flexbox"
	AddressType    = "address"
	NameType       = "name"
	ContactType    = "contact"
	LinkType       = "link"
	TelephoneType  = "telephone"
)

// DefaultRegistry returns a registry holding the standard element types
func DefaultRegistry() *Registry {
	r := NewRegistry()

	for _, t := range []string{TextfieldType, TextareaType, EmailType, NumberType, TelType, URLType, DateType} {
		r.mustRegister(Definition{Type: t, Kind: KindInput, Multiple: true})
	}

	for _, t := range []string{PasswordType, HiddenType, ValueType, RadiosType, CheckboxType, CheckboxesType} {
		r.mustRegister(Definition{Type: t, Kind: KindInput})
	}

	r.mustRegister(Definition{Type: SelectType, Kind: KindInput, Multiple: true})
	r.mustRegister(Definition{Type: MarkupType, Kind: KindMarkup})

	for _, t := range []string{ContainerType, DetailsType, FieldsetType, SectionType, FlexboxType} {
		r.mustRegister(Definition{Type: t, Kind: KindContainer})
	}

	r.mustRegister(Definition{Type: AddressType, Kind: KindComposite, Multiple: true, Schema: addressSchema})
	r.mustRegister(Definition{Type: NameType, Kind: KindComposite, Multiple: true, Schema: nameSchema})
	r.mustRegister(Definition{Type: ContactType, Kind: KindComposite, Multiple: true, Schema: contactSchema})
	r.mustRegister(Definition{Type: LinkType, Kind: KindComposite, Multiple: true, Schema: linkSchema})
	r.mustRegister(Definition{Type: TelephoneType, Kind: KindComposite, Multiple: true, Schema: telephoneSchema})
	r.mustRegister(Definition{Type: CustomCompositeType, Kind: KindComposite, Multiple: true})

	return r
}

func (r *Registry) mustRegister(d Definition) {
	err := r.Register(d)
	if err != nil {
		panic(err)
	}
}

func sub(key string, t string, title string) *Node {
	return &Node{Key: key, Type: t, Properties: Properties{{Name: "title", Value: title}}}
}

func addressSchema() []*Node {
	return []*Node{
		sub("address", TextfieldType, "Address"),
		sub("address_2", TextfieldType, "Address 2"),
		sub("city", TextfieldType, "City/Town"),
		sub("state_province", TextfieldType, "State/Province"),
		sub("postal_code", TextfieldType, "ZIP/Postal Code"),
		sub("country", TextfieldType, "Country"),
	}
}

func nameSchema() []*Node {
	return []*Node{
		sub("title", TextfieldType, "Title"),
		sub("first", TextfieldType, "First"),
		sub("middle", TextfieldType, "Middle"),
		sub("last", TextfieldType, "Last"),
		sub("suffix", TextfieldType, "Suffix"),
		sub("degree", TextfieldType, "Degree"),
	}
}

func contactSchema() []*Node {
	return append([]*Node{
		sub("name", TextfieldType, "Name"),
		sub("company", TextfieldType, "Company"),
		sub("email", EmailType, "Email"),
		sub("phone", TelType, "Phone"),
	}, addressSchema()...)
}

func linkSchema() []*Node {
	return []*Node{
		sub("title", TextfieldType, "Link Title"),
		sub("url", URLType, "Link URL"),
	}
}

func telephoneSchema() []*Node {
	return []*Node{
		sub("type", SelectType, "Type"),
		sub("phone", TelType, "Phone"),
		sub("ext", NumberType, "Ext"),
	}
}
