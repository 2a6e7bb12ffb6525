package complaints

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound = errors.New("complaint not found")
	// ErrInvalid marks caller mistakes (bad input) as opposed to
	// storage failures.
	ErrInvalid = errors.New("invalid complaint input")
)

// Category is the fixed label set of the complaint classifier.
type Category string

const (
	CategoryAdvancedSafety      Category = "advanced_safety"
	CategoryAirbagsSeatbelts    Category = "airbags_seatbelts"
	CategoryBrakesSafety        Category = "brakes_safety"
	CategoryElectricalSystem    Category = "electrical_system"
	CategoryEngine              Category = "engine"
	CategoryFuelSystem          Category = "fuel_system"
	CategoryPowerTrain          Category = "power_train"
	CategorySteeringSuspension  Category = "steering_suspension"
	CategoryStructureBody       Category = "structure_body"
	CategoryVisibilityLighting  Category = "visibility_lighting"
	CategoryWheelsTires         Category = "wheels_tires"
)

var categoryLabels = map[Category]string{
	CategoryAdvancedSafety:     "Advanced Safety",
	CategoryAirbagsSeatbelts:   "Airbags & Seatbelts",
	CategoryBrakesSafety:       "Brakes & Safety",
	CategoryElectricalSystem:   "Electrical System",
	CategoryEngine:             "Engine",
	CategoryFuelSystem:         "Fuel System",
	CategoryPowerTrain:         "Power Train",
	CategorySteeringSuspension: "Steering & Suspension",
	CategoryStructureBody:      "Structure & Body",
	CategoryVisibilityLighting: "Visibility & Lighting",
	CategoryWheelsTires:        "Wheels & Tires",
}

// Categories lists the taxonomy in display order.
var Categories = []Category{
	CategoryAdvancedSafety,
	CategoryAirbagsSeatbelts,
	CategoryBrakesSafety,
	CategoryElectricalSystem,
	CategoryEngine,
	CategoryFuelSystem,
	CategoryPowerTrain,
	CategorySteeringSuspension,
	CategoryStructureBody,
	CategoryVisibilityLighting,
	CategoryWheelsTires,
}

func (c Category) Valid() bool {
	_, ok := categoryLabels[c]
	return ok
}

// Display returns the human-readable category label.
func (c Category) Display() string {
	if label, ok := categoryLabels[c]; ok {
		return label
	}
	return string(c)
}

// Status tracks complaint resolution.
type Status string

const (
	StatusNew        Status = "new"
	StatusInProgress Status = "in_progress"
	StatusResolved   Status = "resolved"
	StatusClosed     Status = "closed"
)

var statusLabels = map[Status]string{
	StatusNew:        "New",
	StatusInProgress: "In Progress",
	StatusResolved:   "Resolved",
	StatusClosed:     "Closed",
}

func (s Status) Valid() bool {
	_, ok := statusLabels[s]
	return ok
}

func (s Status) Display() string {
	if label, ok := statusLabels[s]; ok {
		return label
	}
	return string(s)
}

type Complaint struct {
	ID              int64
	CarID           int64
	Text            string
	CleanedText     string
	Category        Category
	Confidence      float64
	Crash           bool
	Fire            bool
	Status          Status
	ResolutionNotes string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Critical reports whether the complaint involves a crash or a fire.
func (c *Complaint) Critical() bool {
	return c.Crash || c.Fire
}

// FormatDate renders a timestamp the way the chat context expects it.
func FormatDate(t time.Time) string {
	return t.Format("January 2, 2006 at 3:04 PM")
}

type Filter struct {
	CarID      int64
	CustomerID int64
	Category   Category
	Critical   bool
}

type CategoryCount struct {
	Category Category `json:"category"`
	Count    int      `json:"count"`
}

type Statistics struct {
	Total       int             `json:"total_complaints"`
	ByCategory  []CategoryCount `json:"by_category"`
	Critical    int             `json:"critical_complaints"`
	Crash       int             `json:"crash_complaints"`
	Fire        int             `json:"fire_complaints"`
	RecentWeek  int             `json:"recent_complaints_7days"`
}

// QuickSubmit carries everything needed to register a first-time
// complaint: customer, car, and complaint in one store transaction.
type QuickSubmit struct {
	CustomerName  string
	CustomerEmail string
	CustomerPhone string

	LicensePlate string
	CarMake      string
	CarModel     string
	CarYear      *int
	CarMileage   int

	Text  string
	Crash bool
	Fire  bool
}

// Repo — persistence for complaints. ListByCar returns most-recent-first;
// excludeID skips one complaint and limit bounds the result when > 0.
type Repo interface {
	Create(ctx context.Context, c *Complaint) error
	Get(ctx context.Context, id int64) (*Complaint, error)
	List(ctx context.Context, f Filter) ([]Complaint, error)
	ListByCar(ctx context.Context, carID, excludeID int64, limit int) ([]Complaint, error)
	Update(ctx context.Context, c *Complaint) error
	Delete(ctx context.Context, id int64) error
	Statistics(ctx context.Context) (*Statistics, error)
	// QuickSubmitTx finds or creates the customer (email match first,
	// then phone) and the car (by plate), then stores the complaint,
	// all inside one transaction.
	QuickSubmitTx(ctx context.Context, q QuickSubmit, classified *Complaint) (*Complaint, error)
}
