package session

import (
	"errors"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"outliner/internal/config"
	"outliner/internal/domain"
	"outliner/internal/domain/models/outline"
)

var actionTypes = func() []interface{} {
	out := make([]interface{}, len(outline.ActionTypes))
	for i, t := range outline.ActionTypes {
		out[i] = t
	}
	return out
}()

var isNodePath = validation.By(func(value interface{}) error {
	path, _ := value.(string)
	if !outline.ValidPath(path) {
		return errors.New("must be a node path like root.0.1")
	}
	return nil
})

func validatePath(path string) error {
	if err := validation.Validate(path, validation.Required, isNodePath); err != nil {
		return fmt.Errorf("%w: path %q: %v", domain.ErrValidation, path, err)
	}
	return nil
}

// validateAction checks an action received from a client before it reaches the reducer.
func validateAction(a outline.Action) error {
	err := validation.ValidateStruct(&a,
		validation.Field(&a.Type, validation.Required, validation.In(actionTypes...)),
		validation.Field(&a.Path, validation.When(a.TargetsPath(), validation.Required, isNodePath)),
		validation.Field(&a.Text, validation.Length(0, config.MaxNodeTextLength)),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	for path, rec := range a.State {
		if !outline.ValidPath(path) {
			return fmt.Errorf("%w: state key %q is not a node path", domain.ErrValidation, path)
		}
		if len([]rune(rec.Text)) > config.MaxNodeTextLength {
			return fmt.Errorf("%w: text of %s exceeds %d characters", domain.ErrValidation, path, config.MaxNodeTextLength)
		}
	}
	return nil
}
