// Package spec is the style property specification: the registry of known
// properties and shorthands and the parser which turns textual declarations
// into typed values.
//
// A Specification has two phases. During the build phase properties and
// shorthands are registered, mistakes in registration are programming errors
// and panic. After Seal the tables are read only and may be shared by any
// number of goroutines, each parsing declarations into its own Dictionary.
//
// # Shorthand types
//
//   - fall-through: a value that fails to parse for an item is tried against
//     the next item, items left without a value are not set. Values left
//     after the last item are ignored.
//   - replicate: values are assigned to items in order, remaining items get
//     a copy of the last parsed value, any failure fails the declaration.
//   - box: 1, 2 or 4 values over top, right, bottom, left.
//   - recursive: every item receives the complete value string.
//
// # Usage
//
//	s := spec.NewSpecification(log, 0, 0)
//	s.RegisterProperty("color", "black", true, false).AddParser(css.Color())
//	s.Seal()
//
//	dict := spec.NewDictionary()
//	if err := s.ParsePropertyDeclaration(dict, "color", "red", "main.css", 12); err != nil {
//	    log.Warn("Bad declaration", zap.Error(err))
//	}
//	s.SetPropertyDefaults(dict)
package spec
