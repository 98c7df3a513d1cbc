package document

import (
	"errors"
	"time"
)

var (
	ErrNotFound               = errors.New("document not found")
	ErrInvalidControlNumber   = errors.New("control number must follow the format ECOM-YYYY-NNNN")
	ErrTitleRequired          = errors.New("title is required")
	ErrCreatedAtInFuture      = errors.New("created date cannot be in the future")
	ErrDuplicateControlNumber = errors.New("a document with that control number already exists")
	ErrInvalidStatus          = errors.New("invalid status")
	ErrInvalidWinsStatus      = errors.New("invalid wins status")
	ErrForbidden              = errors.New("permission denied")
	ErrAlreadyForwarded       = errors.New("document already forwarded")
	ErrAlreadyReceived        = errors.New("document already received by admin")
	ErrNotForwarded           = errors.New("document is not awaiting admin acknowledgement")
	ErrNotReceived            = errors.New("document has not been received")
	ErrInvalidTransition      = errors.New("invalid workflow transition")
)

const (
	// CreatedAtSkew is how far in the future a createdAt may sit before it is rejected.
	CreatedAtSkew = time.Minute
	// StaleAfter flags createdAt values old enough to be a likely typo.
	StaleAfter = 10 * 365 * 24 * time.Hour
)

type Status string

const (
	StatusRevision Status = "Revision"
	StatusRouting  Status = "Routing"
	StatusApproved Status = "Approved"
	StatusRejected Status = "Rejected"
)

var Statuses = []Status{StatusRevision, StatusRouting, StatusApproved, StatusRejected}

func (s Status) Valid() bool {
	switch s {
	case StatusRevision, StatusRouting, StatusApproved, StatusRejected:
		return true
	}
	return false
}

type WinsStatus string

const (
	WinsApproved WinsStatus = "Approved"
	WinsPending  WinsStatus = "Pending for Approve"
	WinsRejected WinsStatus = "Rejected"
)

var WinsStatuses = []WinsStatus{WinsApproved, WinsPending, WinsRejected}

func (s WinsStatus) Valid() bool {
	switch s {
	case WinsApproved, WinsPending, WinsRejected:
		return true
	}
	return false
}

// AdminStatus tracks admin-side handling. The zero value means unset.
type AdminStatus string

const (
	AdminUnset    AdminStatus = ""
	AdminReceived AdminStatus = "Received"
	AdminReturned AdminStatus = "Returned"
)

// Document is both the wire record and the SQL row. Timestamps are epoch
// milliseconds so the JSON matches what browser clients already store.
type Document struct {
	ControlNumber string     `gorm:"column:control_number;primaryKey;size:16" json:"controlNumber"`
	Title         string     `gorm:"column:title;type:text;not null" json:"title"`
	Owner         string     `gorm:"column:owner;size:255" json:"owner"`
	Notes         string     `gorm:"column:notes;type:text" json:"notes"`
	Status        Status     `gorm:"column:status;size:16;not null" json:"status"`
	WinsStatus    WinsStatus `gorm:"column:wins_status;size:32;not null" json:"winsStatus"`

	Forwarded          bool        `gorm:"column:forwarded" json:"forwarded"`
	ForwardedBy        string      `gorm:"column:forwarded_by;size:64" json:"forwardedBy,omitempty"`
	ForwardedAt        int64       `gorm:"column:forwarded_at" json:"forwardedAt,omitempty"`
	ForwardedHandledBy string      `gorm:"column:forwarded_handled_by;size:64" json:"forwardedHandledBy,omitempty"`
	ForwardedHandledAt int64       `gorm:"column:forwarded_handled_at" json:"forwardedHandledAt,omitempty"`
	AdminStatus        AdminStatus `gorm:"column:admin_status;size:16" json:"adminStatus,omitempty"`
	ReturnedBy         string      `gorm:"column:returned_by;size:64" json:"returnedBy,omitempty"`
	ReturnedAt         int64       `gorm:"column:returned_at" json:"returnedAt,omitempty"`
	ReturnReason       string      `gorm:"column:return_reason;type:text" json:"returnReason,omitempty"`

	CreatedAt int64 `gorm:"column:created_at;autoCreateTime:false" json:"createdAt"`
	UpdatedAt int64 `gorm:"column:updated_at;autoUpdateTime:false" json:"updatedAt"`
	// Set only on archive entries; never stored server side.
	DeletedAt int64 `gorm:"-" json:"deletedAt,omitempty"`

	// Position keeps the replace-all array order in SQL stores.
	Position int `gorm:"column:position;index" json:"-"`
}

func (Document) TableName() string { return "documents" }

// WithDefaults fills the enum fields a bare record may omit.
func (d Document) WithDefaults() Document {
	if d.Status == "" {
		d.Status = StatusRevision
	}
	if d.WinsStatus == "" {
		d.WinsStatus = WinsPending
	}
	return d
}

// IsStale reports whether createdAt is older than StaleAfter.
func (d Document) IsStale(now time.Time) bool {
	return d.CreatedAt > 0 && d.CreatedAt < now.Add(-StaleAfter).UnixMilli()
}

func Millis(t time.Time) int64 { return t.UnixMilli() }
