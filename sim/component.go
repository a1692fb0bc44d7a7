package sim

import (
	"fmt"
	"os"
	"sort"
)

// A Named object is an object that has a name.
type Named interface {
	Name() string
}

// A Component is an element that communicates with others through ports.
type Component interface {
	Named
	Hookable

	GetPortByName(name string) Port
	Ports() []Port

	// NotifyRecv is called when an incoming buffer of a port owned by the
	// component turns non-empty.
	NotifyRecv(port Port)

	// NotifyPortFree is called when an outgoing buffer of a port owned by
	// the component can accept messages again.
	NotifyPortFree(port Port)
}

// ComponentBase provides some functions that other component can use.
type ComponentBase struct {
	HookableBase

	name  string
	ports map[string]Port
}

// NewComponentBase creates a new ComponentBase
func NewComponentBase(name string) *ComponentBase {
	NameMustBeValid(name)

	return &ComponentBase{
		name:  name,
		ports: make(map[string]Port),
	}
}

// Name returns the name of the component.
func (c *ComponentBase) Name() string {
	return c.name
}

// AddPort registers a port under a short name, such as "Top".
func (c *ComponentBase) AddPort(name string, port Port) {
	if _, found := c.ports[name]; found {
		panic("port already exist")
	}

	c.ports[name] = port
}

// GetPortByName returns the port by the name of the port.
func (c *ComponentBase) GetPortByName(name string) Port {
	port, found := c.ports[name]
	if !found {
		errMsg := fmt.Sprintf(
			"Port %s is not available on component %s.\n", name, c.name)
		errMsg += "Available ports include:\n"

		for n := range c.ports {
			errMsg += fmt.Sprintf("\t%s\n", n)
		}

		fmt.Fprint(os.Stderr, errMsg)

		panic("port not found")
	}

	return port
}

// Ports returns all the ports, sorted by their short names.
func (c *ComponentBase) Ports() []Port {
	names := make([]string, 0, len(c.ports))
	for k := range c.ports {
		names = append(names, k)
	}

	sort.Strings(names)

	list := make([]Port, 0, len(names))
	for _, n := range names {
		list = append(list, c.ports[n])
	}

	return list
}
