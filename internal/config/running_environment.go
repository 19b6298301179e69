package config

import "fmt"

type RunningEnvironment string

const Production RunningEnvironment = "production"
const Development RunningEnvironment = "development"

func (e RunningEnvironment) Validate() error {
	switch e {
	case Production, Development:
		return nil
	default:
		return fmt.Errorf("unknown running environment %q (must be one of production, development)", string(e))
	}
}
