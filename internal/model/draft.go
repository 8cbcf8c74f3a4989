package model

import (
	"strings"
	"unicode/utf8"
)

const (
	TitleMinLen       = 3
	TitleMaxLen       = 100
	DescriptionMinLen = 5
	DescriptionMaxLen = 500
)

// Draft - несохраненное содержимое формы создания/редактирования
type Draft struct {
	Title       string
	Description string
}

type FieldErrors struct {
	Title       string
	Description string
}

func (e FieldErrors) Empty() bool {
	return e.Title == "" && e.Description == ""
}

// Trimmed returns the draft in the form it is validated and submitted in.
func (d Draft) Trimmed() Draft {
	return Draft{
		Title:       strings.TrimSpace(d.Title),
		Description: strings.TrimSpace(d.Description),
	}
}

func (d Draft) Validate() FieldErrors {
	var errs FieldErrors

	title := strings.TrimSpace(d.Title)
	switch {
	case title == "":
		errs.Title = "Title is required"
	case utf8.RuneCountInString(title) < TitleMinLen:
		errs.Title = "Title must be at least 3 characters"
	case utf8.RuneCountInString(title) > TitleMaxLen:
		errs.Title = "Title cannot be longer than 100 characters"
	}

	desc := strings.TrimSpace(d.Description)
	switch {
	case desc == "":
		errs.Description = "Description is required"
	case utf8.RuneCountInString(desc) < DescriptionMinLen:
		errs.Description = "Description must be at least 5 characters"
	case utf8.RuneCountInString(desc) > DescriptionMaxLen:
		errs.Description = "Description cannot be longer than 500 characters"
	}

	return errs
}
