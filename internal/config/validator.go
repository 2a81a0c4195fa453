package config

import (
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	enTranslations "github.com/go-playground/validator/v10/translations/en"
)

const tagRequiredForSource = "required_for_source"

func newValidator() (*validator.Validate, ut.Translator, error) {
	validate := validator.New()

	enLocale := en.New()
	uni := ut.New(enLocale, enLocale)
	trans, _ := uni.GetTranslator("en")
	if err := enTranslations.RegisterDefaultTranslations(validate, trans); err != nil {
		return nil, nil, fmt.Errorf("failed to register default translations: %w", err)
	}

	// Report keys as they appear in config.yml
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("mapstructure"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	if err := validate.RegisterValidation("file", isFileReadable); err != nil {
		return nil, nil, fmt.Errorf("failed to register file validation: %w", err)
	}
	validate.RegisterStructValidation(validateSourceConfig, SourceConfig{})

	translations := map[string]string{
		"file":               "{0} must be an existing and readable file",
		tagRequiredForSource: "{0} is required for source kind {1}",
	}
	for tag, text := range translations {
		if err := registerTranslation(validate, trans, tag, text); err != nil {
			return nil, nil, err
		}
	}
	return validate, trans, nil
}

func registerTranslation(validate *validator.Validate, trans ut.Translator, tag, text string) error {
	err := validate.RegisterTranslation(tag, trans, func(ut ut.Translator) error {
		return ut.Add(tag, text, true)
	}, func(ut ut.Translator, fe validator.FieldError) string {
		t, _ := ut.T(tag, strings.TrimPrefix(fe.Namespace(), "Config."), fe.Param())
		return t
	})
	if err != nil {
		return fmt.Errorf("failed to register %s translation: %w", tag, err)
	}
	return nil
}

// validateSourceConfig requires the settings the selected fetcher cannot run without.
func validateSourceConfig(sl validator.StructLevel) {
	cfg := sl.Current().Interface().(SourceConfig)
	switch cfg.Kind {
	case "local":
		if strings.TrimSpace(cfg.Local.Directory) == "" {
			sl.ReportError(cfg.Local.Directory, "local.directory", "Local.Directory", tagRequiredForSource, cfg.Kind)
		}
	case "web":
		if strings.TrimSpace(cfg.Web.TranscriptBaseURL) == "" {
			sl.ReportError(cfg.Web.TranscriptBaseURL, "web.transcript_base_url", "Web.TranscriptBaseURL", tagRequiredForSource, cfg.Kind)
		}
	}
}

func isFileReadable(fl validator.FieldLevel) bool {
	path := fl.Field().String()
	if path == "" {
		return false
	}

	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	_ = f.Close()
	return true
}
