package errorz

import "strings"

// InvalidInput signals that a provided input is invalid due to the wrapped errors.
//
// Validation code is expected to accumulate every applicable error before
// returning, so the user is shown all problems at once instead of fixing
// them one by one.
type InvalidInput []error

func (e InvalidInput) Error() string {
	var b strings.Builder
	b.WriteString("invalid input:\n")
	for _, err := range e {
		b.WriteString(err.Error())
		b.WriteString("\n")
	}
	return b.String()
}

func (e InvalidInput) Unwrap() []error {
	return e
}

// Messages returns the message of every wrapped error. Keyed errors
// contribute the message of their wrapped error without the key prefix.
func (e InvalidInput) Messages() []string {
	out := make([]string, 0, len(e))
	for _, err := range e {
		var keyed Keyed
		if ok := asKeyed(err, &keyed); ok {
			out = append(out, keyed.Err.Error())
			continue
		}
		out = append(out, err.Error())
	}
	return out
}

func asKeyed(err error, tgt *Keyed) bool {
	keyed, ok := err.(Keyed)
	if !ok {
		return false
	}
	*tgt = keyed
	return true
}
