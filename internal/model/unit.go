package model

// UnitID identifies an organizational unit partition.
type UnitID string

// Units known out of the box.
const (
	UnitSede  UnitID = "SEDE"
	UnitPemad UnitID = "PEMAD"
)
