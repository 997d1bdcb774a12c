package spec

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/cases"

	"rcss/common"
)

var (
	ErrUnknownProperty  = errors.New("unknown property")
	ErrUnknownShorthand = errors.New("unknown shorthand")
	ErrUnknownItem      = errors.New("unknown shorthand item")
	ErrInvalidShorthand = errors.New("invalid shorthand definition")
	ErrNoValues         = errors.New("no values")
	ErrInvalidValue     = errors.New("invalid value")
	ErrTokenCount       = errors.New("unexpected number of values")
)

// Specification keeps all known property and shorthand definitions.
type Specification struct {
	log *zap.Logger

	properties []*PropertyDefinition // indexed by PropertyID
	shorthands []*ShorthandDefinition

	propertyMap  *IDNameMap[PropertyID]
	shorthandMap *IDNameMap[ShorthandID]

	propertyNames  []string
	inheritedNames []string

	sealed bool
}

// normalizeName folds name for case insensitive lookups. Casers keep state,
// so one is made per call to keep lookups safe for concurrent readers.
func normalizeName(name string) string {
	return cases.Fold().String(strings.TrimSpace(name))
}

// NewSpecification creates empty specification. Reserved counts include the
// invalid slot and define how many explicit ids may be used in each space.
func NewSpecification(log *zap.Logger, reserveProperties, reserveShorthands int) *Specification {
	if log == nil {
		log = zap.NewNop()
	}
	return &Specification{
		log:          log.Named("spec"),
		properties:   make([]*PropertyDefinition, max(reserveProperties, 1)),
		shorthands:   make([]*ShorthandDefinition, max(reserveShorthands, 1)),
		propertyMap:  NewIDNameMap[PropertyID](reserveProperties),
		shorthandMap: NewIDNameMap[ShorthandID](reserveShorthands),
	}
}

// Seal ends build phase. Registration after Seal panics.
func (s *Specification) Seal() {
	s.sealed = true
	s.log.Debug("Specification sealed",
		zap.Int("properties", len(s.propertyNames)),
		zap.Int("shorthands", s.shorthandMap.Len()-1))
}

// Sealed reports if build phase is over.
func (s *Specification) Sealed() bool {
	return s.sealed
}

func (s *Specification) mustBuild(what, name string) {
	if s.sealed {
		panic(fmt.Sprintf("unable to register %s '%s': specification is sealed", what, name))
	}
}

// RegisterProperty registers new property. When id is InvalidProperty new id
// is allocated, otherwise id must be inside reserved range and unused.
// Returned definition is ready to have parsers attached. Registering the same
// name twice panics.
func (s *Specification) RegisterProperty(name, defaultValue string, inherited, forcesLayout bool, id ...PropertyID) *PropertyDefinition {
	name = normalizeName(name)
	s.mustBuild("property", name)

	if s.propertyMap.GetID(name) != InvalidProperty {
		panic(fmt.Sprintf("property '%s' is already registered", name))
	}
	if s.shorthandMap.GetID(name) != InvalidShorthand {
		panic(fmt.Sprintf("property '%s' clashes with registered shorthand", name))
	}
	pid := InvalidProperty
	if len(id) > 0 {
		pid = id[0]
	}
	if pid == InvalidProperty {
		pid = s.propertyMap.GetOrCreateID(name)
	} else {
		s.propertyMap.AddPair(pid, name)
	}

	def := &PropertyDefinition{
		id:           pid,
		name:         name,
		defaultValue: defaultValue,
		inherited:    inherited,
		forcesLayout: forcesLayout,
	}
	for int(pid) >= len(s.properties) {
		s.properties = append(s.properties, nil)
	}
	s.properties[pid] = def

	s.propertyNames = append(s.propertyNames, name)
	if inherited {
		s.inheritedNames = append(s.inheritedNames, name)
	}
	return def
}

// GetProperty returns property definition or nil when id is not registered.
func (s *Specification) GetProperty(id PropertyID) *PropertyDefinition {
	if id == InvalidProperty || int(id) >= len(s.properties) {
		return nil
	}
	return s.properties[id]
}

// GetPropertyByName returns property definition or nil when name is not
// registered.
func (s *Specification) GetPropertyByName(name string) *PropertyDefinition {
	return s.GetProperty(s.propertyMap.GetID(normalizeName(name)))
}

// PropertyID returns id of the property name or InvalidProperty.
func (s *Specification) PropertyID(name string) PropertyID {
	return s.propertyMap.GetID(normalizeName(name))
}

// PropertyName returns name of the property id, "invalid" for unknown ids.
func (s *Specification) PropertyName(id PropertyID) string {
	return s.propertyMap.GetName(id)
}

// GetRegisteredProperties returns names of all properties in registration
// order. Caller must not modify the slice.
func (s *Specification) GetRegisteredProperties() []string {
	return s.propertyNames
}

// GetRegisteredInheritedProperties returns names of inherited properties in
// registration order. Caller must not modify the slice.
func (s *Specification) GetRegisteredInheritedProperties() []string {
	return s.inheritedNames
}

// RegisterShorthand registers new shorthand over comma separated list of
// property and shorthand names, referenced shorthands must be registered
// first. Returns ErrUnknownItem when any of the names could not be resolved
// and ErrInvalidShorthand when items do not fit the type. Name clashes (with
// properties too) and bad explicit ids are programming errors and panic.
func (s *Specification) RegisterShorthand(name, items string, typ common.ShorthandType, id ...ShorthandID) error {
	name = normalizeName(name)
	s.mustBuild("shorthand", name)

	if !typ.IsValid() {
		return fmt.Errorf("%w '%s': bad type %d", ErrInvalidShorthand, name, int(typ))
	}
	if s.shorthandMap.GetID(name) != InvalidShorthand {
		panic(fmt.Sprintf("shorthand '%s' is already registered", name))
	}
	if s.propertyMap.GetID(name) != InvalidProperty {
		panic(fmt.Sprintf("shorthand '%s' clashes with registered property", name))
	}

	var list []ShorthandItem
	for item := range strings.SplitSeq(items, ",") {
		item = normalizeName(item)
		if item == "" {
			continue
		}
		if pid := s.propertyMap.GetID(item); pid != InvalidProperty {
			list = append(list, PropertyItem(pid))
			continue
		}
		if sid := s.shorthandMap.GetID(item); sid != InvalidShorthand {
			list = append(list, ShorthandRef(sid))
			continue
		}
		return fmt.Errorf("%w '%s' in shorthand '%s'", ErrUnknownItem, item, name)
	}
	switch {
	case len(list) == 0:
		return fmt.Errorf("%w '%s': no items", ErrInvalidShorthand, name)
	case typ == common.ShorthandTypeBox && len(list) != 4:
		return fmt.Errorf("%w '%s': box requires 4 items, got %d", ErrInvalidShorthand, name, len(list))
	}

	sid := InvalidShorthand
	if len(id) > 0 {
		sid = id[0]
	}
	if sid == InvalidShorthand {
		sid = s.shorthandMap.GetOrCreateID(name)
	} else {
		s.shorthandMap.AddPair(sid, name)
	}

	for int(sid) >= len(s.shorthands) {
		s.shorthands = append(s.shorthands, nil)
	}
	s.shorthands[sid] = &ShorthandDefinition{ID: sid, Name: name, Type: typ, Items: list}
	return nil
}

// GetShorthand returns shorthand definition or nil when id is not registered.
func (s *Specification) GetShorthand(id ShorthandID) *ShorthandDefinition {
	if id == InvalidShorthand || int(id) >= len(s.shorthands) {
		return nil
	}
	return s.shorthands[id]
}

// GetShorthandByName returns shorthand definition or nil when name is not
// registered.
func (s *Specification) GetShorthandByName(name string) *ShorthandDefinition {
	return s.GetShorthand(s.shorthandMap.GetID(normalizeName(name)))
}

// ShorthandID returns id of the shorthand name or InvalidShorthand.
func (s *Specification) ShorthandID(name string) ShorthandID {
	return s.shorthandMap.GetID(normalizeName(name))
}

// ShorthandName returns name of the shorthand id, "invalid" for unknown ids.
func (s *Specification) ShorthandName(id ShorthandID) string {
	return s.shorthandMap.GetName(id)
}

// Shorthands returns all registered shorthands in id order.
func (s *Specification) Shorthands() []*ShorthandDefinition {
	out := make([]*ShorthandDefinition, 0, len(s.shorthands))
	for _, sd := range s.shorthands {
		if sd != nil {
			out = append(out, sd)
		}
	}
	return out
}

// AssertAllInserted verifies that explicitly reserved id spaces are fully
// populated. Counts include the invalid slot.
func (s *Specification) AssertAllInserted(properties, shorthands int) {
	s.propertyMap.AssertAllInserted(properties)
	s.shorthandMap.AssertAllInserted(shorthands)
}

// ItemName returns name of the shorthand item.
func (s *Specification) ItemName(it ShorthandItem) string {
	switch it.Kind {
	case ItemProperty:
		return s.PropertyName(it.Property)
	case ItemShorthand:
		return s.ShorthandName(it.Shorthand)
	default:
		return InvalidName
	}
}
