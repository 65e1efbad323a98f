// internal/status/constants.go
package status

// Scale status block layout.
// These values define the register map seen by PLCs and MUST NOT be configurable.

// ---- BLOCK GEOMETRY ----

// SlotsPerDevice is the fixed number of registers per scale.
const SlotsPerDevice = 20

// ---- SLOT INDICES ----

// SlotHealthCode holds the scale health state.
const SlotHealthCode = 0

// SlotLastErrorCode holds the error kind of the last failure.
const SlotLastErrorCode = 1

// SlotSecondsInError holds the duration (in seconds) the scale has been in error.
const SlotSecondsInError = 2

// ---- READING ----

// SlotNetHi and SlotNetLo hold the net weight in grams as a signed 32-bit value.
const SlotNetHi = 3
const SlotNetLo = 4

// SlotTareHi and SlotTareLo hold the tare weight in grams as a signed 32-bit value.
const SlotTareHi = 5
const SlotTareLo = 6

// SlotFlags holds the Flag* bits.
const SlotFlags = 7

// SlotReadingStart..SlotReadingEnd is written as one range.
const SlotReadingStart = SlotNetHi
const SlotReadingEnd = SlotFlags

// ---- RESERVED RANGE ----

// Slots 8-10 are reserved for future use.
const SlotReservedStart = 8
const SlotReservedEnd = 10

// ---- DEVICE NAME ----

// SlotDeviceNameStart is the first slot used for the scale name.
const SlotDeviceNameStart = 11

// SlotDeviceNameSlots is the number of slots reserved for the scale name.
const SlotDeviceNameSlots = 8

// SlotDeviceNameEnd is the last slot used for the scale name (inclusive).
const SlotDeviceNameEnd = SlotDeviceNameStart + SlotDeviceNameSlots - 1

// ---- LIMITS ----

// DeviceNameMaxChars is the maximum number of ASCII characters stored for the name.
const DeviceNameMaxChars = 16

// ---- HEALTH CODES ----

// HealthUnknown represents an unknown or boot state.
const HealthUnknown uint16 = 0

// HealthOK represents a scale answering polls.
const HealthOK uint16 = 1

// HealthError represents a scale in its offline period.
const HealthError uint16 = 2

// HealthStale represents a scale with no fresh reading within the offline threshold.
const HealthStale uint16 = 3

// HealthDisabled represents a scale disabled in config.
const HealthDisabled uint16 = 4

// ---- FLAGS ----

const (
	FlagStable   uint16 = 1 << 0
	FlagNet      uint16 = 1 << 1
	FlagZero     uint16 = 1 << 2
	FlagWithTare uint16 = 1 << 3
)
