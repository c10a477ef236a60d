package model

// ValidationOutcome is the verdict of the content validator for one file.
type ValidationOutcome struct {
	Accepted bool
	Reason   string
}

// Accept returns an accepting outcome.
func Accept() ValidationOutcome {
	return ValidationOutcome{Accepted: true, Reason: "File is valid"}
}

// Reject returns a rejecting outcome with a user-facing reason.
func Reject(reason string) ValidationOutcome {
	return ValidationOutcome{Reason: reason}
}

// Err converts a rejecting outcome into a *ValidationError.
func (o ValidationOutcome) Err() error {
	if o.Accepted {
		return nil
	}
	return &ValidationError{Reason: o.Reason}
}
