package domain

// Unit is the organizational department a ticket or user belongs to.
type Unit string

const (
	UnitHelpdesk    Unit = "Helpdesk Unit"
	UnitNetwork     Unit = "Network Unit"
	UnitServer      Unit = "Server Unit"
	UnitApplication Unit = "Application Unit"
	UnitSecurity    Unit = "Security Unit"
	UnitHardware    Unit = "Hardware Unit"
)

// Units lists every organizational unit in display order.
func Units() []Unit {
	return []Unit{
		UnitHelpdesk,
		UnitNetwork,
		UnitServer,
		UnitApplication,
		UnitSecurity,
		UnitHardware,
	}
}

// ValidUnit reports whether the value is one of the fixed units.
func ValidUnit(u Unit) bool {
	for _, candidate := range Units() {
		if candidate == u {
			return true
		}
	}
	return false
}
