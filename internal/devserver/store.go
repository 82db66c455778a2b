package devserver

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"

	"github.com/vango-dev/homectl/pkg/resync"
)

var (
	// ErrNotFound is returned for unknown device or person IDs.
	ErrNotFound = errors.New("not found")

	// ErrOutOfRange is returned when a value is outside a device's bounds.
	ErrOutOfRange = errors.New("value out of range")
)

// Device is a controllable device.
type Device struct {
	ID    string
	Name  string
	Room  string
	Value int
	Min   int
	Max   int
	On    bool
}

// State returns the device's widget state.
func (d Device) State() resync.State {
	return resync.State{ID: d.ID, Value: d.Value, Min: d.Min, Max: d.Max, On: d.On}
}

// Person is a console user.
type Person struct {
	ID   string
	Name string
}

// Store holds devices and persons.
type Store struct {
	mu      sync.RWMutex
	devices map[string]Device
	persons map[string]Person
	nextID  int
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		devices: make(map[string]Device),
		persons: make(map[string]Person),
		nextID:  1,
	}
}

// NewSeededStore creates a store with a few devices and persons.
func NewSeededStore() *Store {
	s := NewStore()
	s.PutDevice(Device{Name: "Ceiling light", Room: "Living room", Value: 3, Min: 0, Max: 10, On: true})
	s.PutDevice(Device{Name: "Thermostat", Room: "Bedroom", Value: 21, Min: 16, Max: 28, On: true})
	s.PutDevice(Device{Name: "Blinds", Room: "Kitchen", Value: 0, Min: 0, Max: 5})
	s.PutPerson(Person{Name: "Ada"})
	s.PutPerson(Person{Name: "Linus"})
	return s
}

func (s *Store) id() string {
	id := strconv.Itoa(s.nextID)
	s.nextID++
	return id
}

// PutDevice stores d, assigning an ID if it has none.
func (s *Store) PutDevice(d Device) Device {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d.ID == "" {
		d.ID = s.id()
	}
	s.devices[d.ID] = d
	return d
}

// PutPerson stores p, assigning an ID if it has none.
func (s *Store) PutPerson(p Person) Person {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == "" {
		p.ID = s.id()
	}
	s.persons[p.ID] = p
	return p
}

// Device returns the device with id.
func (s *Store) Device(id string) (Device, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.devices[id]
	if !ok {
		return Device{}, fmt.Errorf("device %s: %w", id, ErrNotFound)
	}
	return d, nil
}

// Devices returns all devices ordered by ID.
func (s *Store) Devices() []Device {
	s.mu.RLock()
	out := make([]Device, 0, len(s.devices))
	for _, d := range s.devices {
		out = append(out, d)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return lessID(out[i].ID, out[j].ID) })
	return out
}

// SetValue sets the value of a device within its bounds.
func (s *Store) SetValue(id string, value int) (Device, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.devices[id]
	if !ok {
		return Device{}, fmt.Errorf("device %s: %w", id, ErrNotFound)
	}
	if value < d.Min || value > d.Max {
		return Device{}, fmt.Errorf("device %s: %d not in [%d, %d]: %w", id, value, d.Min, d.Max, ErrOutOfRange)
	}
	d.Value = value
	s.devices[id] = d
	return d, nil
}

// SetStatus switches a device on or off.
func (s *Store) SetStatus(id string, on bool) (Device, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.devices[id]
	if !ok {
		return Device{}, fmt.Errorf("device %s: %w", id, ErrNotFound)
	}
	d.On = on
	s.devices[id] = d
	return d, nil
}

// DeleteDevice removes a device.
func (s *Store) DeleteDevice(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.devices[id]; !ok {
		return fmt.Errorf("device %s: %w", id, ErrNotFound)
	}
	delete(s.devices, id)
	return nil
}

// Persons returns all persons ordered by ID.
func (s *Store) Persons() []Person {
	s.mu.RLock()
	out := make([]Person, 0, len(s.persons))
	for _, p := range s.persons {
		out = append(out, p)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return lessID(out[i].ID, out[j].ID) })
	return out
}

// DeletePerson removes a person.
func (s *Store) DeletePerson(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.persons[id]; !ok {
		return fmt.Errorf("person %s: %w", id, ErrNotFound)
	}
	delete(s.persons, id)
	return nil
}

func lessID(a, b string) bool {
	ai, aerr := strconv.Atoi(a)
	bi, berr := strconv.Atoi(b)
	if aerr == nil && berr == nil {
		return ai < bi
	}
	return a < b
}
