package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/Dan9191/vaccine-booking/internal/forms"
	"github.com/Dan9191/vaccine-booking/internal/models"
	"github.com/Dan9191/vaccine-booking/internal/service"
)

// AppointmentForm renders the empty booking form
func (h *Handler) AppointmentForm(w http.ResponseWriter, r *http.Request) {
	h.renderAppointment(w, r, &forms.AppointmentForm{}, nil)
}

// BookAppointment validates and stores a booking for the logged-in user
func (h *Handler) BookAppointment(w http.ResponseWriter, r *http.Request) {
	form := forms.ParseAppointment(r)
	errs := forms.Validate(form)

	if !errs.Any() {
		user := currentUser(r)
		appt := form.Appointment(user.Email)
		err := h.svc.BookAppointment(r.Context(), user, appt)
		switch {
		case errors.Is(err, service.ErrAadharTaken):
			errs.Add("aadhar", "An appointment is already booked for this Aadhar number.")
		case err != nil:
			h.serverError(w, r, err)
			return
		default:
			h.sessions.AddFlash(w, r, models.FlashSuccess, fmt.Sprintf("Appointment booked for %s %s!", appt.FirstName, appt.LastName))
			http.Redirect(w, r, "/booking", http.StatusSeeOther)
			return
		}
	}

	h.renderAppointment(w, r, form, errs)
}

func (h *Handler) renderAppointment(w http.ResponseWriter, r *http.Request, form *forms.AppointmentForm, errs forms.Errors) {
	data := h.page(w, r, "Book Appointment")
	data.Form = form
	data.Errors = errs
	data.DoseChoices = forms.DoseChoices
	data.AgeChoices = forms.AgeChoices
	h.render(w, r, http.StatusOK, "appointment", data)
}

// Bookings lists the logged-in user's appointments
func (h *Handler) Bookings(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.Bookings(r.Context(), currentUser(r))
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	data := h.page(w, r, "My Bookings")
	data.Appointments = list
	h.render(w, r, http.StatusOK, "booking", data)
}

// ExportBookings serves the logged-in user's appointments as an XML download
func (h *Handler) ExportBookings(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.ExportBookings(r.Context(), currentUser(r))
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="bookings.xml"`)
	if _, err := w.Write(out); err != nil {
		h.log.Warnf("Failed to write export: %v", err)
	}
}
