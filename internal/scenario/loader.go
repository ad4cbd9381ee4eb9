package scenario

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/ternarybob/barcheck/internal/models"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Only fails when the tag is misspelled
	if err := v.RegisterValidation("step_kind", func(fl validator.FieldLevel) bool {
		return models.StepKind(fl.Field().String()).IsValid()
	}); err != nil {
		panic(err)
	}
	v.RegisterStructValidation(validateStep, models.Step{})
	return v
}

// validateStep covers rules that span fields
func validateStep(sl validator.StructLevel) {
	step := sl.Current().Interface().(models.Step)
	switch step.Kind {
	case models.StepKindWait:
		if step.Selector == "" && step.Script == "" {
			sl.ReportError(step.Selector, "Selector", "selector", "selector_or_script", "")
		}
	case models.StepKindSleep:
		if step.Timeout == nil || *step.Timeout <= 0 {
			sl.ReportError(step.Timeout, "Timeout", "timeout", "sleep_duration", "")
		}
	}
}

// LoadFile parses and validates one declarative scenario. Relative upload
// paths are resolved against the file's directory.
func LoadFile(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario %s: %w", path, err)
	}

	var def models.ScenarioDefinition
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&def); err != nil {
		return nil, fmt.Errorf("failed to parse scenario %s: %w", path, err)
	}

	if err := validate.Struct(&def); err != nil {
		return nil, fmt.Errorf("invalid scenario %s: %w", path, describeValidation(err))
	}

	dir := filepath.Dir(path)
	for i := range def.Steps {
		step := &def.Steps[i]
		if step.Kind == models.StepKindUpload && !filepath.IsAbs(step.Value) {
			step.Value = filepath.Join(dir, step.Value)
		}
	}

	return NewScript(def, path), nil
}

// LoadDir loads every *.yaml and *.yml file in dir, sorted by file name.
// Two files declaring the same scenario name is an error.
func LoadDir(dir string) ([]*Script, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenarios directory %s: %w", dir, err)
	}

	var files []string
	for _, e := range entries {
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if !e.IsDir() && (ext == ".yaml" || ext == ".yml") {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)

	seen := make(map[string]string)
	scripts := make([]*Script, 0, len(files))
	for _, f := range files {
		s, err := LoadFile(f)
		if err != nil {
			return nil, err
		}
		if prev, dup := seen[s.Name()]; dup {
			return nil, fmt.Errorf("scenario %q declared in both %s and %s", s.Name(), prev, f)
		}
		seen[s.Name()] = f
		scripts = append(scripts, s)
	}
	return scripts, nil
}

// describeValidation flattens validator errors into one readable line
func describeValidation(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.TrimPrefix(fe.Namespace(), "ScenarioDefinition.")
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s fails %s=%s", field, fe.Tag(), fe.Param()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s fails %s", field, fe.Tag()))
		}
	}
	return errors.New(strings.Join(msgs, "; "))
}
