package forms

import "net/http"

// SignupForm is submitted to /signup
type SignupForm struct {
	Username        string `form:"username" validate:"required,min=2,max=20"`
	Email           string `form:"email" validate:"required,email,max=120"`
	Password        string `form:"password" validate:"required,maxbytes=72"`
	ConfirmPassword string `form:"confirm_password" validate:"required,eqfield=Password"`
}

// ParseSignup reads a SignupForm from the request body
func ParseSignup(r *http.Request) *SignupForm {
	return &SignupForm{
		Username:        value(r, "username"),
		Email:           value(r, "email"),
		Password:        r.PostFormValue("password"),
		ConfirmPassword: r.PostFormValue("confirm_password"),
	}
}

// LoginForm is submitted to /login
type LoginForm struct {
	Email    string `form:"email" validate:"required,email"`
	Password string `form:"password" validate:"required"`
	Remember bool   `form:"remember"`
}

// ParseLogin reads a LoginForm from the request body
func ParseLogin(r *http.Request) *LoginForm {
	return &LoginForm{
		Email:    value(r, "email"),
		Password: r.PostFormValue("password"),
		Remember: checked(r, "remember"),
	}
}
