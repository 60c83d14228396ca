package valueobjects

import "fmt"

type FinalResult string

const (
	FinalResultNone   FinalResult = "-"
	FinalResultPass   FinalResult = "Pass"
	FinalResultFail   FinalResult = "Fail"
	FinalResultWaiver FinalResult = "Waiver"
)

var validFinalResults = map[FinalResult]bool{
	FinalResultNone:   true,
	FinalResultPass:   true,
	FinalResultFail:   true,
	FinalResultWaiver: true,
}

func (r FinalResult) String() string {
	return string(r)
}

func (r FinalResult) IsValid() bool {
	return validFinalResults[r]
}

// NewFinalResult treats an empty value as "-".
func NewFinalResult(s string) (FinalResult, error) {
	if s == "" {
		return FinalResultNone, nil
	}
	r := FinalResult(s)
	if !r.IsValid() {
		return "", fmt.Errorf("invalid final result: %s", s)
	}
	return r, nil
}
