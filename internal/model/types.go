package model

import "time"

type DeviceType string

const (
	DevicePC          DeviceType = "pc"
	DevicePlaystation DeviceType = "playstation"
	DeviceBilliard    DeviceType = "billiard"
	DeviceOther       DeviceType = "other"
)

func ValidDeviceType(t DeviceType) bool {
	switch t {
	case DevicePC, DevicePlaystation, DeviceBilliard, DeviceOther:
		return true
	}
	return false
}

type DeviceStatus string

const (
	DeviceAvailable   DeviceStatus = "available"
	DeviceOccupied    DeviceStatus = "occupied"
	DeviceMaintenance DeviceStatus = "maintenance"
)

type Device struct {
	ID         string
	CenterID   string
	Name       string
	Type       DeviceType
	Status     DeviceStatus
	HourlyRate int64
	CreatedAt  time.Time
}

// Session is one rental period of a device. EndTime and TotalCost are set
// together, exactly once, when the session stops. PausedAt is non-nil iff
// IsPaused is true.
type Session struct {
	ID                 string
	CenterID           string
	DeviceID           string
	CustomerName       *string
	StartTime          time.Time
	EndTime            *time.Time
	IsPaused           bool
	PausedAt           *time.Time
	TotalPausedSeconds int64
	TotalCost          *int64
}

func (s *Session) Open() bool {
	return s != nil && s.EndTime == nil
}

type Product struct {
	ID       string
	CenterID string
	Name     string
	Category string
	Price    int64
	Stock    int
	Active   bool
}

// Sale is one buffet line item. ProductName and UnitPrice are snapshots taken
// at sale time so later product edits do not rewrite history.
type Sale struct {
	ID          string
	CenterID    string
	ProductID   string
	ProductName string
	DeviceID    *string
	Quantity    int
	UnitPrice   int64
	TotalPrice  int64
	SoldBy      string
	CreatedAt   time.Time
}

// Invoice is the receipt computed at session stop. It is derived, never
// persisted; rebuilding one later means re-querying sales for the session
// window plus the stored session cost.
type Invoice struct {
	SessionID    string
	DeviceName   string
	DeviceType   DeviceType
	CustomerName *string
	StartTime    time.Time
	EndTime      time.Time
	TotalSeconds int64
	HourlyRate   int64
	DeviceCost   int64
	Lines        []Sale
	BuffetTotal  int64
	GrandTotal   int64
}

// DefaultRates holds the per-type hourly rates used to prefill new devices.
type DefaultRates struct {
	PC          int64
	Playstation int64
	Billiard    int64
}

func (r DefaultRates) ForType(t DeviceType) int64 {
	switch t {
	case DevicePC:
		return r.PC
	case DevicePlaystation:
		return r.Playstation
	case DeviceBilliard:
		return r.Billiard
	}
	return 0
}

type NotificationKind string

const (
	NotificationSessionStopped NotificationKind = "session_stopped"
	NotificationLowStock       NotificationKind = "low_stock"
)

type Notification struct {
	ID        string
	CenterID  string
	Kind      NotificationKind
	Message   string
	Read      bool
	CreatedAt time.Time
}

type DailyRevenue struct {
	Day            time.Time
	DevicesRevenue int64
	BuffetRevenue  int64
}

type RevenueSummary struct {
	DevicesRevenue int64
	BuffetRevenue  int64
	TotalRevenue   int64
	AverageDaily   int64
}

type DeviceTypeRevenue struct {
	Type    DeviceType
	Revenue int64
}
