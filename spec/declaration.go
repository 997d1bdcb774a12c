package spec

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"rcss/common"
)

// ParsePropertyDeclaration parses declaration by name, whether it is a
// property or a shorthand, storing results in dict. Source and line are kept
// with every stored value. On error dict is not modified.
func (s *Specification) ParsePropertyDeclaration(dict *Dictionary, name, value, source string, line int) error {
	var err error
	if pid := s.PropertyID(name); pid != InvalidProperty {
		err = s.parseProperty(dict, pid, value, source, line)
	} else if sid := s.ShorthandID(name); sid != InvalidShorthand {
		err = s.parseShorthand(dict, sid, value, source, line)
	} else {
		err = fmt.Errorf("%w '%s'", ErrUnknownProperty, name)
	}
	if err != nil {
		s.log.Debug("Declaration rejected", zap.String("name", name), zap.String("value", value),
			zap.String("source", source), zap.Int("line", line), zap.Error(err))
	}
	return err
}

// ParsePropertyDeclarationByID parses value of a simple property.
func (s *Specification) ParsePropertyDeclarationByID(dict *Dictionary, id PropertyID, value, source string, line int) error {
	err := s.parseProperty(dict, id, value, source, line)
	if err != nil {
		s.log.Debug("Declaration rejected", zap.Stringer("id", id), zap.String("value", value),
			zap.String("source", source), zap.Int("line", line), zap.Error(err))
	}
	return err
}

// ParseShorthandDeclaration expands shorthand value into its items. Nothing is
// stored unless the whole declaration succeeds.
func (s *Specification) ParseShorthandDeclaration(dict *Dictionary, id ShorthandID, value, source string, line int) error {
	err := s.parseShorthand(dict, id, value, source, line)
	if err != nil {
		s.log.Debug("Shorthand rejected", zap.Stringer("id", id), zap.String("value", value),
			zap.String("source", source), zap.Int("line", line), zap.Error(err))
	}
	return err
}

// SetPropertyDefaults adds default value of every registered property which
// is not present in dict yet.
func (s *Specification) SetPropertyDefaults(dict *Dictionary) {
	for _, def := range s.properties {
		if def == nil || dict.Has(def.id) {
			continue
		}
		v, ok := def.Default()
		if !ok {
			s.log.Warn("Unable to parse default value", zap.String("property", def.name), zap.String("value", def.defaultValue))
			continue
		}
		dict.Set(def.id, Property{Value: v})
	}
}

func (s *Specification) parseProperty(dict *Dictionary, id PropertyID, value, source string, line int) error {
	def := s.GetProperty(id)
	if def == nil {
		return fmt.Errorf("%w %s", ErrUnknownProperty, id)
	}
	v, err := def.ParseDeclared(value)
	if err != nil {
		return fmt.Errorf("property '%s' value '%s': %w", def.name, value, err)
	}
	dict.Set(id, Property{Value: v, Source: source, Line: line})
	return nil
}

func (s *Specification) parseShorthand(dict *Dictionary, id ShorthandID, value, source string, line int) error {
	sd := s.GetShorthand(id)
	if sd == nil {
		return fmt.Errorf("%w %s", ErrUnknownShorthand, id)
	}
	scratch := NewDictionary()
	if err := s.expandValue(scratch, sd, value, source, line); err != nil {
		return err
	}
	dict.Merge(scratch)
	return nil
}

// expandValue expands complete declared value of a shorthand.
func (s *Specification) expandValue(dict *Dictionary, sd *ShorthandDefinition, value, source string, line int) error {
	if sd.Type == common.ShorthandTypeRecursive {
		return s.expandRecursive(dict, sd, value, source, line)
	}
	tokens, err := Tokenize(value, SplitWhitespace)
	if err != nil {
		return fmt.Errorf("shorthand '%s' value '%s': %w", sd.Name, value, err)
	}
	return s.expandTokens(dict, sd, tokens, source, line)
}

// expandTokens dispatches already tokenized value by shorthand type.
func (s *Specification) expandTokens(dict *Dictionary, sd *ShorthandDefinition, tokens []string, source string, line int) error {
	var err error
	switch sd.Type {
	case common.ShorthandTypeRecursive:
		return s.expandRecursive(dict, sd, strings.Join(tokens, " "), source, line)
	case common.ShorthandTypeBox:
		err = s.expandBox(dict, sd, tokens, source, line)
	case common.ShorthandTypeReplicate:
		err = s.expandReplicate(dict, sd, tokens, source, line)
	default:
		err = s.expandFallThrough(dict, sd, tokens, source, line)
	}
	if err != nil {
		return fmt.Errorf("shorthand '%s' value '%s': %w", sd.Name, strings.Join(tokens, " "), err)
	}
	return nil
}

// parseItem assigns a single token to a shorthand item. Nested shorthand is
// staged separately so its failure leaves nothing behind.
func (s *Specification) parseItem(dict *Dictionary, it ShorthandItem, token, source string, line int) error {
	switch it.Kind {
	case ItemProperty:
		def := s.GetProperty(it.Property)
		if def == nil {
			return fmt.Errorf("%w %s", ErrUnknownProperty, it.Property)
		}
		v, ok := def.parseToken(token)
		if !ok {
			return fmt.Errorf("%w '%s' for '%s'", ErrInvalidValue, token, def.name)
		}
		dict.Set(it.Property, Property{Value: v, Source: source, Line: line})
		return nil
	case ItemShorthand:
		sub := s.GetShorthand(it.Shorthand)
		if sub == nil {
			return fmt.Errorf("%w %s", ErrUnknownShorthand, it.Shorthand)
		}
		scratch := NewDictionary()
		if err := s.expandTokens(scratch, sub, []string{token}, source, line); err != nil {
			return err
		}
		dict.Merge(scratch)
		return nil
	}
	return fmt.Errorf("%w: %s", ErrUnknownItem, it)
}

// expandFallThrough walks items and tokens together. A token that does not
// parse for an item is offered to the next one, items left without a token
// are not touched. Tokens left once items are exhausted are ignored, a token
// rejected by the last item fails the declaration.
func (s *Specification) expandFallThrough(dict *Dictionary, sd *ShorthandDefinition, tokens []string, source string, line int) error {
	next := 0
	for i, it := range sd.Items {
		if next == len(tokens) {
			break
		}
		if err := s.parseItem(dict, it, tokens[next], source, line); err != nil {
			if i+1 < len(sd.Items) {
				continue
			}
			return err
		}
		next++
	}
	if next < len(tokens) {
		s.log.Debug("Values ignored", zap.String("shorthand", sd.Name), zap.Strings("values", tokens[next:]))
	}
	return nil
}

// expandReplicate assigns tokens to items one to one. Value parsed from the
// last token is copied to the remaining property items, remaining shorthand
// items (or items following a shorthand) get the last token expanded again.
func (s *Specification) expandReplicate(dict *Dictionary, sd *ShorthandDefinition, tokens []string, source string, line int) error {
	if len(tokens) > len(sd.Items) {
		return fmt.Errorf("%w: %d values for %d items", ErrTokenCount, len(tokens), len(sd.Items))
	}
	var (
		last   Property
		copied bool
	)
	for i, it := range sd.Items {
		if i >= len(tokens) && copied && it.Kind == ItemProperty {
			dict.Set(it.Property, last)
			continue
		}
		if err := s.parseItem(dict, it, tokens[min(i, len(tokens)-1)], source, line); err != nil {
			return err
		}
		if i < len(tokens) {
			copied = false
			if it.Kind == ItemProperty {
				last, copied = dict.Get(it.Property)
			}
		}
	}
	return nil
}

// expandBox handles 1, 2 or 4 values over top, right, bottom, left items.
func (s *Specification) expandBox(dict *Dictionary, sd *ShorthandDefinition, tokens []string, source string, line int) error {
	var sides [4]string
	switch len(tokens) {
	case 1:
		sides = [4]string{tokens[0], tokens[0], tokens[0], tokens[0]}
	case 2:
		sides = [4]string{tokens[0], tokens[1], tokens[0], tokens[1]}
	case 4:
		sides = [4]string(tokens)
	default:
		return fmt.Errorf("%w: box takes 1, 2 or 4 values, got %d", ErrTokenCount, len(tokens))
	}
	if len(sd.Items) != len(sides) {
		return fmt.Errorf("%w '%s': box requires 4 items", ErrInvalidShorthand, sd.Name)
	}
	for i, it := range sd.Items {
		if err := s.parseItem(dict, it, sides[i], source, line); err != nil {
			return err
		}
	}
	return nil
}

// expandRecursive offers complete value to every item. Declaration succeeds
// when at least one item accepts it, items that fail leave nothing behind.
func (s *Specification) expandRecursive(dict *Dictionary, sd *ShorthandDefinition, value, source string, line int) error {
	var (
		accepted int
		firstErr error
	)
	for _, it := range sd.Items {
		scratch := NewDictionary()
		var err error
		switch it.Kind {
		case ItemProperty:
			err = s.parseProperty(scratch, it.Property, value, source, line)
		case ItemShorthand:
			if sub := s.GetShorthand(it.Shorthand); sub != nil {
				err = s.expandValue(scratch, sub, value, source, line)
			} else {
				err = fmt.Errorf("%w %s", ErrUnknownShorthand, it.Shorthand)
			}
		default:
			err = fmt.Errorf("%w: %s", ErrUnknownItem, it)
		}
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		dict.Merge(scratch)
		accepted++
	}
	if accepted == 0 {
		return fmt.Errorf("shorthand '%s' value '%s': %w", sd.Name, value, firstErr)
	}
	return nil
}
