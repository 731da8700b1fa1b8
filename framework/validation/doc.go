// Package validation checks component property values against Laravel-style
// rule strings.
//
// # Basic Usage
//
//	v := validation.Make(map[string]any{
//	    "host": "0.0.0.0",
//	    "port": 6379,
//	}, validation.Rules{
//	    "host": "required",
//	    "port": "required|integer|between:1,65535",
//	})
//
//	if v.Fails() {
//	    // v.Errors() is a *Errors bag that also implements error
//	}
//
// # Available Rules
//
// Presence:
//   - required : value must be present, non-nil and non-blank
//   - nullable : stops further rules silently when the value is absent or nil
//   - sometimes: stops further rules silently when the value is absent or empty
//
// Type:
//   - string  : the raw value must be a Go string
//   - numeric : any Go number, or a string parseable as float64
//   - integer : formats as an int
//   - boolean : true/false/1/0/yes/no (case-insensitive)
//   - duration: a time.Duration or a string accepted by time.ParseDuration
//
// Size (numbers compare by value, everything else by rune count):
//   - min:n, max:n, size:n, between:lo,hi
//
// Numeric comparison:
//   - gt:n, gte:n, lt:n, lte:n
//
// Format:
//   - email, url (any scheme://), alpha, alpha_num, alpha_dash, regex:pattern
//
// Membership and comparison:
//   - in:a,b,c, not_in:a,b,c, same:other, different:other
//
// Rules stop at the first failure for each field. Unknown rule names are
// reported as failures so typos surface at definition time.
package validation
