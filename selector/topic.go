package selector

import "regexp"

// TopicName matches a topic by exact name.
type TopicName struct {
	name string
}

// Name returns an exact-topic selector. It panics when topic is empty.
func Name(topic string) TopicName {
	if topic == "" {
		panic("selector: empty topic name")
	}
	return TopicName{name: topic}
}

func (s TopicName) isTopic() {}

// Topic returns the selected topic name.
func (s TopicName) Topic() string { return s.name }

// MatchesTopic reports whether topic equals the selected name.
func (s TopicName) MatchesTopic(topic string) bool { return topic == s.name }

func (s TopicName) String() string { return "topic(" + s.name + ")" }

// TopicPattern matches topic names against a regular expression. The
// whole name must match; a partial hit inside the name does not count.
// The zero value matches nothing; construct with Pattern or MustPattern.
type TopicPattern struct {
	src      string
	anchored *regexp.Regexp
}

// Pattern returns a pattern-topic selector for re. It panics when re is
// nil.
func Pattern(re *regexp.Regexp) TopicPattern {
	if re == nil {
		panic("selector: nil pattern")
	}
	return TopicPattern{
		src:      re.String(),
		anchored: regexp.MustCompile(`\A(?:` + re.String() + `)\z`),
	}
}

// MustPattern returns a pattern-topic selector for expr, panicking when
// expr does not compile.
func MustPattern(expr string) TopicPattern {
	return Pattern(regexp.MustCompile(expr))
}

func (s TopicPattern) isTopic() {}

// Source returns the pattern's source expression. Two pattern selectors
// with equal sources are the same selector.
func (s TopicPattern) Source() string { return s.src }

// MatchesTopic reports whether the whole topic name matches the pattern.
func (s TopicPattern) MatchesTopic(topic string) bool {
	return s.anchored != nil && s.anchored.MatchString(topic)
}

func (s TopicPattern) String() string { return "pattern(" + s.src + ")" }
