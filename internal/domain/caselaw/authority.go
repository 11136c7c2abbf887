package caselaw

import (
	"strings"

	"github.com/turtacn/CiteRank-Engine/pkg/errors"
)

// AuthorityStrength classifies how much precedential force a citation
// carries from the citing court's point of view.
type AuthorityStrength string

const (
	StrengthBinding    AuthorityStrength = "binding"
	StrengthPersuasive AuthorityStrength = "persuasive"
	StrengthUnknown    AuthorityStrength = "unknown"
)

// IsValid checks if the authority strength is one of the enumerated values.
func (s AuthorityStrength) IsValid() bool {
	switch s {
	case StrengthBinding, StrengthPersuasive, StrengthUnknown:
		return true
	default:
		return false
	}
}

// String returns the string representation of the authority strength.
func (s AuthorityStrength) String() string { return string(s) }

// ChainWeight returns the contribution of one edge to a precedent chain's
// cumulative strength.  Binding outweighs persuasive; unknown contributes
// nothing, so chains through well-classified citations win ties.
func (s AuthorityStrength) ChainWeight() int {
	switch s {
	case StrengthBinding:
		return 2
	case StrengthPersuasive:
		return 1
	default:
		return 0
	}
}

// PropagationWeight returns the edge weight used by strength-weighted
// PageRank propagation.  Unknown stays at 1 — an unclassified citation must
// not lose rank mass relative to uniform mode.
func (s AuthorityStrength) PropagationWeight() float64 {
	switch s {
	case StrengthBinding:
		return 2
	default:
		return 1
	}
}

// ParseAuthorityStrength parses a string into an AuthorityStrength.
// Matching is case-insensitive; the empty string parses to StrengthUnknown.
func ParseAuthorityStrength(str string) (AuthorityStrength, error) {
	if str == "" {
		return StrengthUnknown, nil
	}
	s := AuthorityStrength(strings.ToLower(str))
	if s.IsValid() {
		return s, nil
	}
	return StrengthUnknown, errors.New(errors.ErrCodeValidation, "unsupported authority strength: "+str)
}

// ClassifyAuthority derives the authority strength of a citation from the
// citing and cited courts.  A citation is binding when both courts share a
// jurisdiction and the citing court sits at or below the cited court's level
// (it is bound by that precedent); otherwise it is persuasive.  Missing
// jurisdiction or court metadata on either side yields StrengthUnknown — the
// classification is never guessed.
func ClassifyAuthority(citing, cited *Case) AuthorityStrength {
	if citing == nil || cited == nil {
		return StrengthUnknown
	}
	if citing.Jurisdiction == "" || cited.Jurisdiction == "" {
		return StrengthUnknown
	}
	// Rank 0 covers both CourtUnknown and a zero-value level that never went
	// through validation.
	if citing.CourtLevel.Rank() == 0 || cited.CourtLevel.Rank() == 0 {
		return StrengthUnknown
	}
	if citing.Jurisdiction == cited.Jurisdiction && citing.CourtLevel.Rank() <= cited.CourtLevel.Rank() {
		return StrengthBinding
	}
	return StrengthPersuasive
}
