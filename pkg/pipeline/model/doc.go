// Package model provides the data structures shared by the pipeline package and its options:
// the step descriptions and the hook interface options implement.
package model
