package types

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// "notblank" rejects strings made only of whitespace.
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	return v
}

type Validater interface {
	Validate() map[string]string
}

type AskParams struct {
	Question string `json:"question" validate:"required,notblank"`
}

func Validate(v Validater) map[string]string {
	return v.Validate()
}

func (params *AskParams) Validate() map[string]string {
	return ValidateStruct(params)
}

// ValidateStruct runs the shared validator and returns field -> message.
func ValidateStruct(s any) map[string]string {
	if err := validate.Struct(s); err != nil {
		errs, ok := err.(validator.ValidationErrors)
		if !ok {
			return map[string]string{"_": err.Error()}
		}
		errors := make(map[string]string)
		for _, e := range errs {
			errors[e.Field()] = fmt.Sprintf("failed on '%s' tag", e.Tag())
		}
		return errors
	}
	return nil
}

type AskResponse struct {
	Answer  string     `json:"answer"`
	Outcome Outcome    `json:"outcome"`
	Turns   []ChatTurn `json:"turns"`
}

type DocumentStatus struct {
	Ready       bool          `json:"ready"`
	State       DocumentState `json:"state"`
	LastUpdated *time.Time    `json:"last_updated,omitempty"`
	Pages       int           `json:"pages,omitempty"`
}

// StatusOf builds the status object reported to the presentation layer.
func StatusOf(c *DocumentCache) DocumentStatus {
	st := DocumentStatus{State: StateOf(c)}
	st.Ready = st.State == StateReady
	if c != nil {
		t := c.LastUpdated
		st.LastUpdated = &t
		st.Pages = c.Pages
	}
	return st
}
