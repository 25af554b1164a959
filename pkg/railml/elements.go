package railml

import "fmt"

// Item carries the identity and position shared by every positioned element.
// It is embedded in each element type, so its fields appear inline in JSON.
type Item struct {
	ID  string   `json:"id"`
	Pos Position `json:"pos"`
}

// Base returns the embedded item.
func (it *Item) Base() *Item { return it }

// Loc returns the element position.
func (it *Item) Loc() *Position { return &it.Pos }

// Element is implemented by pointers to every positioned element type.
type Element interface {
	Base() *Item
	Loc() *Position
}

// Direction is the running direction an element applies to.
type Direction string

const (
	DirUp   Direction = "up"
	DirDown Direction = "down"
)

// Objects holds the trackside objects of a track or segment.
type Objects struct {
	Signals                      []Signal                      `json:"signals,omitempty"`
	Balises                      []Balise                      `json:"balises,omitempty"`
	TrainDetectors               []TrainDetector               `json:"trainDetectors,omitempty"`
	TrackCircuitBorders          []TrackCircuitBorder          `json:"trackCircuitBorders,omitempty"`
	Derailers                    []Derailer                    `json:"derailers,omitempty"`
	TrainProtectionElements      []TrainProtectionElement      `json:"trainProtectionElements,omitempty"`
	TrainProtectionElementGroups []TrainProtectionElementGroup `json:"trainProtectionElementGroups,omitempty"`
}

// TrackElements holds the track elements of a track or segment.
type TrackElements struct {
	PlatformEdges  []PlatformEdge  `json:"platformEdges,omitempty"`
	SpeedChanges   []SpeedChange   `json:"speedChanges,omitempty"`
	LevelCrossings []LevelCrossing `json:"levelCrossings,omitempty"`
	CrossSections  []CrossSection  `json:"crossSections,omitempty"`
	GeoMappings    []GeoMapping    `json:"geoMappings,omitempty"`
}

type Signal struct {
	Item
	Name          string    `json:"name,omitempty"`
	Dir           Direction `json:"dir,omitempty"`
	Sight         *float64  `json:"sight,omitempty"`
	Type          string    `json:"type,omitempty"`
	Function      string    `json:"function,omitempty"`
	Code          string    `json:"code,omitempty"`
	Switchable    *bool     `json:"switchable,omitempty"`
	OCPStationRef string    `json:"ocpStationRef,omitempty"`
}

type Balise struct {
	Item
	Name string `json:"name,omitempty"`
}

type TrainDetector struct {
	Item
	AxleCounting       *bool  `json:"axleCounting,omitempty"`
	DirectionDetection *bool  `json:"directionDetection,omitempty"`
	Medium             string `json:"medium,omitempty"`
}

type TrackCircuitBorder struct {
	Item
	InsulatedRail string `json:"insulatedRail,omitempty"`
}

type Derailer struct {
	Item
	Dir        Direction `json:"dir,omitempty"`
	DerailSide string    `json:"derailSide,omitempty"`
	Code       string    `json:"code,omitempty"`
}

type TrainProtectionElement struct {
	Item
	Dir    Direction `json:"dir,omitempty"`
	Medium string    `json:"medium,omitempty"`
	System string    `json:"system,omitempty"`
}

// TrainProtectionElementGroup groups train protection elements by id. It is
// placed at the position of its first member.
type TrainProtectionElementGroup struct {
	Item
	ElementRefs []string `json:"elementRefs,omitempty"`
}

type PlatformEdge struct {
	Item
	Name   string    `json:"name,omitempty"`
	Dir    Direction `json:"dir,omitempty"`
	Side   string    `json:"side,omitempty"`
	Height *float64  `json:"height,omitempty"`
	Length *float64  `json:"length,omitempty"`
}

type SpeedChange struct {
	Item
	Dir        Direction `json:"dir,omitempty"`
	VMax       string    `json:"vMax,omitempty"`
	Signalised *bool     `json:"signalised,omitempty"`
}

type LevelCrossing struct {
	Item
	Protection string   `json:"protection,omitempty"`
	Angle      *float64 `json:"angle,omitempty"`
}

type CrossSection struct {
	Item
	Name    string `json:"name,omitempty"`
	OCPRef  string `json:"ocpRef,omitempty"`
	Section string `json:"sectionType,omitempty"`
}

type GeoMapping struct {
	Item
	Name        string `json:"name,omitempty"`
	Code        string `json:"code,omitempty"`
	Description string `json:"description,omitempty"`
}

// Category enumerates positioned element categories in their canonical order.
type Category int

const (
	CategorySignal Category = iota
	CategoryBalise
	CategoryTrainDetector
	CategoryTrackCircuitBorder
	CategoryDerailer
	CategoryTrainProtectionElement
	CategoryTrainProtectionElementGroup
	CategoryPlatformEdge
	CategorySpeedChange
	CategoryLevelCrossing
	CategoryCrossSection
	CategoryGeoMapping

	numCategories
)

var categoryInfo = [numCategories]struct{ name, prefix string }{
	{"signals", "sig"},
	{"balises", "bal"},
	{"trainDetectors", "tde"},
	{"trackCircuitBorders", "tcb"},
	{"derailers", "der"},
	{"trainProtectionElements", "tpe"},
	{"trainProtectionElementGroups", "tpg"},
	{"platformEdges", "pe"},
	{"speedChanges", "sc"},
	{"levelCrossings", "lc"},
	{"crossSections", "cs"},
	{"geoMappings", "gm"},
}

// Categories returns every category in canonical order.
func Categories() []Category {
	out := make([]Category, numCategories)
	for i := range out {
		out[i] = Category(i)
	}
	return out
}

func (c Category) valid() bool { return c >= 0 && c < numCategories }

func (c Category) String() string {
	if c.valid() {
		return categoryInfo[c].name
	}
	return fmt.Sprintf("Category(%d)", int(c))
}

// Prefix returns the short tag used when synthesizing element ids.
func (c Category) Prefix() string {
	if c.valid() {
		return categoryInfo[c].prefix
	}
	return "el"
}

// MarshalText implements encoding.TextMarshaler, so categories can key JSON
// objects.
func (c Category) MarshalText() ([]byte, error) {
	if !c.valid() {
		return nil, fmt.Errorf("invalid category %d", int(c))
	}
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Category) UnmarshalText(b []byte) error {
	for i, info := range categoryInfo {
		if info.name == string(b) {
			*c = Category(i)
			return nil
		}
	}
	return fmt.Errorf("unknown category %q", string(b))
}

// Each calls fn for every element held by o and e, walking categories in
// canonical order and elements in slice order. Iteration stops when fn
// returns false. Either argument may be nil.
func Each(o *Objects, e *TrackElements, fn func(Category, Element) bool) {
	if o != nil {
		if !each(CategorySignal, o.Signals, fn) ||
			!each(CategoryBalise, o.Balises, fn) ||
			!each(CategoryTrainDetector, o.TrainDetectors, fn) ||
			!each(CategoryTrackCircuitBorder, o.TrackCircuitBorders, fn) ||
			!each(CategoryDerailer, o.Derailers, fn) ||
			!each(CategoryTrainProtectionElement, o.TrainProtectionElements, fn) ||
			!each(CategoryTrainProtectionElementGroup, o.TrainProtectionElementGroups, fn) {
			return
		}
	}
	if e != nil {
		_ = each(CategoryPlatformEdge, e.PlatformEdges, fn) &&
			each(CategorySpeedChange, e.SpeedChanges, fn) &&
			each(CategoryLevelCrossing, e.LevelCrossings, fn) &&
			each(CategoryCrossSection, e.CrossSections, fn) &&
			each(CategoryGeoMapping, e.GeoMappings, fn)
	}
}

func each[T any, P interface {
	*T
	Element
}](c Category, s []T, fn func(Category, Element) bool) bool {
	for i := range s {
		if !fn(c, P(&s[i])) {
			return false
		}
	}
	return true
}

// Counts returns the number of elements per category.
func Counts(o *Objects, e *TrackElements) map[Category]int {
	counts := make(map[Category]int)
	Each(o, e, func(c Category, _ Element) bool {
		counts[c]++
		return true
	})
	return counts
}

// Append adds copies of every object in other to o.
func (o *Objects) Append(other Objects) {
	o.Signals = append(o.Signals, other.Signals...)
	o.Balises = append(o.Balises, other.Balises...)
	o.TrainDetectors = append(o.TrainDetectors, other.TrainDetectors...)
	o.TrackCircuitBorders = append(o.TrackCircuitBorders, other.TrackCircuitBorders...)
	o.Derailers = append(o.Derailers, other.Derailers...)
	o.TrainProtectionElements = append(o.TrainProtectionElements, other.TrainProtectionElements...)
	o.TrainProtectionElementGroups = append(o.TrainProtectionElementGroups, other.TrainProtectionElementGroups...)
}

// Append adds copies of every element in other to e.
func (e *TrackElements) Append(other TrackElements) {
	e.PlatformEdges = append(e.PlatformEdges, other.PlatformEdges...)
	e.SpeedChanges = append(e.SpeedChanges, other.SpeedChanges...)
	e.LevelCrossings = append(e.LevelCrossings, other.LevelCrossings...)
	e.CrossSections = append(e.CrossSections, other.CrossSections...)
	e.GeoMappings = append(e.GeoMappings, other.GeoMappings...)
}
