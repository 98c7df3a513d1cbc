package document

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

var reControlNumber = regexp.MustCompile(`^ECOM-\d{4}-\d{4}$`)

func ValidControlNumber(s string) bool { return reControlNumber.MatchString(s) }

// ValidateCreatedAt rejects timestamps later than now plus CreatedAtSkew.
func ValidateCreatedAt(ms int64, now time.Time) error {
	if ms > now.Add(CreatedAtSkew).UnixMilli() {
		return ErrCreatedAtInFuture
	}
	return nil
}

// Validate checks the fields a record must carry before it enters the
// active collection.
func (d Document) Validate(now time.Time) error {
	if !ValidControlNumber(d.ControlNumber) {
		return fmt.Errorf("%w: %q", ErrInvalidControlNumber, d.ControlNumber)
	}
	if strings.TrimSpace(d.Title) == "" {
		return ErrTitleRequired
	}
	if !d.Status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, d.Status)
	}
	if !d.WinsStatus.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidWinsStatus, d.WinsStatus)
	}
	return ValidateCreatedAt(d.CreatedAt, now)
}
