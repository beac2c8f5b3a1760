package ast

import "fmt"

// DuplicateLambdaParameterError indicates two lambda parameters sharing a name.
type DuplicateLambdaParameterError struct {
	Name string
}

func (e *DuplicateLambdaParameterError) Error() string {
	return fmt.Sprintf("duplicate lambda parameter: %s", e.Name)
}

func NewDuplicateLambdaParameterError(name string) *DuplicateLambdaParameterError {
	return &DuplicateLambdaParameterError{Name: name}
}
