// Package xmlexport writes a user's bookings as an XML document.
package xmlexport

import (
	"fmt"
	"strconv"

	"github.com/beevik/etree"

	"github.com/Dan9191/vaccine-booking/internal/models"
)

// Bookings builds
//
//	<bookings user="alice" email="a@x.com" count="1">
//	  <appointment id="3"><firstname>…</firstname>…</appointment>
//	</bookings>
func Bookings(user *models.User, list []models.Appointment) ([]byte, error) {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	root := doc.CreateElement("bookings")
	root.CreateAttr("user", user.Username)
	root.CreateAttr("email", user.Email)
	root.CreateAttr("count", strconv.Itoa(len(list)))

	for i := range list {
		a := &list[i]
		el := root.CreateElement("appointment")
		el.CreateAttr("id", strconv.FormatInt(a.ID, 10))
		for _, f := range [...]struct{ name, value string }{
			{"firstname", a.FirstName},
			{"middlename", a.MiddleName},
			{"lastname", a.LastName},
			{"mobile", a.Mobile},
			{"email", a.Email},
			{"address", a.Address},
			{"dob", a.DOB},
			{"aadhar", a.Aadhar},
			{"dose", a.Dose},
			{"another", a.Another},
			{"age", a.Age},
			{"district", a.District},
			{"location", a.Location},
			{"date", a.Date},
			{"timeslot", a.Timeslot},
		} {
			el.CreateElement(f.name).SetText(f.value)
		}
	}

	doc.Indent(2)
	out, err := doc.WriteToBytes()
	if err != nil {
		return nil, fmt.Errorf("failed to write XML: %w", err)
	}
	return out, nil
}
