package models

import "time"

// Appointment is a vaccination slot booked by a logged-in user.
// Email holds the booking user's email and is what the booking list filters on.
type Appointment struct {
	ID         int64     `json:"id"`
	FirstName  string    `json:"firstname"`
	MiddleName string    `json:"middlename"`
	LastName   string    `json:"lastname"`
	Mobile     string    `json:"mobile"`
	Email      string    `json:"email"`
	Address    string    `json:"address"`
	DOB        string    `json:"dob"`
	Aadhar     string    `json:"aadhar"`
	Dose       string    `json:"dose"`
	Another    string    `json:"another"`
	Age        string    `json:"age"`
	District   string    `json:"district"`
	Location   string    `json:"location"`
	Date       string    `json:"date"`
	Timeslot   string    `json:"timeslot"`
	CreatedAt  time.Time `json:"created_at"`
}

// FullName joins the non-empty name parts.
func (a *Appointment) FullName() string {
	name := a.FirstName
	if a.MiddleName != "" {
		name += " " + a.MiddleName
	}
	if a.LastName != "" {
		name += " " + a.LastName
	}
	return name
}
