// pkg/core/vehicle.go
package core

import "fmt"

// RequiredLegs is the number of crossings a vehicle makes before it is done:
// out and back.
const RequiredLegs = 2

// Side identifies one of the two shores.
type Side int

const (
	SideA Side = 0
	SideB Side = 1
)

// Opposite returns the other shore.
func (s Side) Opposite() Side {
	return 1 - s
}

// Valid reports whether s names one of the two shores.
func (s Side) Valid() bool {
	return s == SideA || s == SideB
}

// Class is the vehicle category. It determines how many capacity units a
// vehicle takes on the ferry.
type Class int

const (
	Car Class = iota + 1
	Minibus
	Truck
)

// Classes lists every class in generation order.
var Classes = []Class{Car, Minibus, Truck}

// Size returns the capacity units taken by a vehicle of this class.
func (c Class) Size() int {
	switch c {
	case Car:
		return 1
	case Minibus:
		return 2
	case Truck:
		return 3
	default:
		return 0
	}
}

func (c Class) String() string {
	switch c {
	case Car:
		return "Car"
	case Minibus:
		return "Minibus"
	case Truck:
		return "Truck"
	default:
		return fmt.Sprintf("Class(%d)", int(c))
	}
}

// MaxClassSize is the size of the largest class.
func MaxClassSize() int {
	max := 0
	for _, c := range Classes {
		if c.Size() > max {
			max = c.Size()
		}
	}
	return max
}

// Vehicle is one simulated vehicle.
// ID, Class, InitialSide and TollLane never change after creation.
// Side and Legs are mutated only by the vehicle's own actor while it holds
// the boarding lock.
type Vehicle struct {
	ID          int
	Class       Class
	InitialSide Side
	TollLane    int

	Side Side
	Legs int
}

// NewVehicle returns a vehicle parked on side with no legs completed.
func NewVehicle(id int, class Class, side Side, tollLane int) *Vehicle {
	return &Vehicle{
		ID:          id,
		Class:       class,
		InitialSide: side,
		TollLane:    tollLane,
		Side:        side,
	}
}

// Size returns the capacity units this vehicle takes.
func (v *Vehicle) Size() int {
	return v.Class.Size()
}

// Done reports whether the vehicle has finished its round trip.
func (v *Vehicle) Done() bool {
	return v.Legs >= RequiredLegs
}
