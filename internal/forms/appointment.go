package forms

import (
	"net/http"

	"github.com/Dan9191/vaccine-booking/internal/models"
)

// Choices offered by the booking form
var (
	DoseChoices = []Choice{{"first", "First dose"}, {"second", "Second dose"}}
	AgeChoices  = []Choice{{"18-44", "18 to 44"}, {"45-59", "45 to 59"}, {"60+", "60 and above"}}
)

// Choice is a radio/select option
type Choice struct {
	Value string
	Label string
}

// AppointmentForm is submitted to /appointment. The booking email is not
// part of the form: it is always the logged-in user's.
type AppointmentForm struct {
	FirstName  string `form:"firstname" validate:"required,max=20"`
	MiddleName string `form:"middlename" validate:"max=20"`
	LastName   string `form:"lastname" validate:"required,max=20"`
	Mobile     string `form:"mobile" validate:"required,len=10,digits"`
	Address    string `form:"address" validate:"required,max=200"`
	DOB        string `form:"dob" validate:"required,datetime=2006-01-02,notfuture"`
	Aadhar     string `form:"aadhar" validate:"required,len=12,digits"`
	Dose       string `form:"dose" validate:"required,oneof=first second"`
	Another    string `form:"another" validate:"max=50"`
	Age        string `form:"age" validate:"required,oneof=18-44 45-59 60+"`
	District   string `form:"district" validate:"required,max=50"`
	Location   string `form:"location" validate:"required,max=100"`
	Date       string `form:"date" validate:"required,datetime=2006-01-02,notpast"`
	Timeslot   string `form:"timeslot" validate:"required,max=20"`
}

// ParseAppointment reads an AppointmentForm from the request body
func ParseAppointment(r *http.Request) *AppointmentForm {
	return &AppointmentForm{
		FirstName:  value(r, "firstname"),
		MiddleName: value(r, "middlename"),
		LastName:   value(r, "lastname"),
		Mobile:     value(r, "mobile"),
		Address:    value(r, "address"),
		DOB:        value(r, "dob"),
		Aadhar:     value(r, "aadhar"),
		Dose:       value(r, "dose"),
		Another:    value(r, "another"),
		Age:        value(r, "age"),
		District:   value(r, "district"),
		Location:   value(r, "location"),
		Date:       value(r, "date"),
		Timeslot:   value(r, "timeslot"),
	}
}

// Appointment builds the record to store for the booking user's email
func (f *AppointmentForm) Appointment(email string) *models.Appointment {
	return &models.Appointment{
		FirstName:  f.FirstName,
		MiddleName: f.MiddleName,
		LastName:   f.LastName,
		Mobile:     f.Mobile,
		Email:      email,
		Address:    f.Address,
		DOB:        f.DOB,
		Aadhar:     f.Aadhar,
		Dose:       f.Dose,
		Another:    f.Another,
		Age:        f.Age,
		District:   f.District,
		Location:   f.Location,
		Date:       f.Date,
		Timeslot:   f.Timeslot,
	}
}
