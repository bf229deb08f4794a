package transform

import "github.com/pinggolf/pmo-smartsheet-migrator/internal/model"

// ContactFrom implements spec §4.6.8: build a contact object from a
// name/email pair. Returns (Contact{}, false) when both are empty, signaling
// the caller to drop the contact.
func ContactFrom(name, email string) (model.Contact, bool) {
	c := model.Contact{Name: name, Email: email}
	if c.Empty() {
		return model.Contact{}, false
	}
	return c, true
}

// MultiContactObject builds the MULTI_CONTACT cell object from a set of
// contacts, dropping any that are empty.
func MultiContactObject(contacts []model.Contact) *model.ObjectValue {
	var kept []model.Contact
	for _, c := range contacts {
		if !c.Empty() {
			kept = append(kept, c)
		}
	}
	if len(kept) == 0 {
		return nil
	}
	return &model.ObjectValue{ObjectType: model.ObjectTypeMultiContact, Contacts: kept}
}

// MultiPicklistObject builds the MULTI_PICKLIST cell object from a set of
// discrete values (Material/Cost resource names).
func MultiPicklistObject(values []string) *model.ObjectValue {
	if len(values) == 0 {
		return nil
	}
	return &model.ObjectValue{ObjectType: model.ObjectTypeMultiPicklist, Values: values}
}
