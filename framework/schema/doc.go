// Package schema declares the configuration a component accepts and builds
// immutable Config values from raw option maps.
//
//	s := schema.MustNew(
//	    schema.Prop("host", schema.Default("0.0.0.0")),
//	    schema.Prop("port", schema.Required(), schema.Default(6379), schema.OfKind(schema.Int)),
//	    schema.Prop("db", schema.Default(0), schema.Rules("integer|between:0,15")),
//	)
//
//	cfg, err := s.Build(map[string]any{"port": "7000", "extra": 1})
//	// cfg.Int("port") == 7000, cfg.Has("extra") == false
//
// Build applies, for every declared property: the input value or else the
// default, coercion to the declared Kind, then the validation rules.
// Undeclared input keys are dropped silently. Errors wrap errdefs.ErrValidation.
package schema
