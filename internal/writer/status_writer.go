// internal/writer/status_writer.go
package writer

import (
	"errors"
	"fmt"

	"github.com/SeedmyUgaraes/Massa-sub000/internal/status"
)

// endpointClient is what the status writer needs from the Modbus side.
type endpointClient interface {
	WriteRegisters(unitID uint8, addr uint16, regs []uint16) error
}

// StatusWriter puts a snapshot into status memory as-is.
type StatusWriter interface {
	WriteStatus(s status.Snapshot) error
}

// StatusPlan says where one scale's status block lives.
type StatusPlan struct {
	ScaleID    string
	Endpoint   string
	UnitID     uint8
	BaseSlot   uint16
	DeviceName string
}

// ---- incremental fields ----

// field is one independently written range of the block.
type field struct {
	name    string
	slot    uint16
	changed func(prev, next status.Snapshot) bool
	regs    func(s status.Snapshot) []uint16
	commit  func(dst *status.Snapshot, src status.Snapshot)
}

var fields = []field{
	{
		name:    "health",
		slot:    status.SlotHealthCode,
		changed: func(p, n status.Snapshot) bool { return p.Health != n.Health },
		regs:    func(s status.Snapshot) []uint16 { return []uint16{s.Health} },
		commit:  func(d *status.Snapshot, s status.Snapshot) { d.Health = s.Health },
	},
	{
		name:    "last_error",
		slot:    status.SlotLastErrorCode,
		changed: func(p, n status.Snapshot) bool { return p.LastErrorCode != n.LastErrorCode },
		regs:    func(s status.Snapshot) []uint16 { return []uint16{s.LastErrorCode} },
		commit:  func(d *status.Snapshot, s status.Snapshot) { d.LastErrorCode = s.LastErrorCode },
	},
	{
		name:    "seconds_in_error",
		slot:    status.SlotSecondsInError,
		changed: func(p, n status.Snapshot) bool { return p.SecondsInError != n.SecondsInError },
		regs:    func(s status.Snapshot) []uint16 { return []uint16{s.SecondsInError} },
		commit:  func(d *status.Snapshot, s status.Snapshot) { d.SecondsInError = s.SecondsInError },
	},
	{
		// net, tare and flags must never be observed half-updated
		name:    "reading",
		slot:    status.SlotReadingStart,
		changed: func(p, n status.Snapshot) bool { return !status.SameReading(p, n) },
		regs:    status.EncodeReading,
		commit: func(d *status.Snapshot, s status.Snapshot) {
			d.NetGrams, d.TareGrams, d.Flags = s.NetGrams, s.TareGrams, s.Flags
		},
	},
}

// ---- writer ----

type deviceStatusWriter struct {
	plan StatusPlan
	cli  endpointClient

	// dirty forces a whole-block write: set initially and after any failure.
	dirty    bool
	written  status.Snapshot
	nameRegs []uint16
}

// NewDeviceStatusWriter builds the writer for one scale's status block.
func NewDeviceStatusWriter(plan StatusPlan, cli endpointClient) StatusWriter {
	return &deviceStatusWriter{
		plan:     plan,
		cli:      cli,
		dirty:    true,
		written:  status.Snapshot{Health: status.HealthUnknown},
		nameRegs: status.EncodeName(plan.DeviceName),
	}
}

func (sw *deviceStatusWriter) WriteStatus(s status.Snapshot) error {
	if sw.cli == nil {
		return fmt.Errorf("status writer %s: no client for %s", sw.plan.ScaleID, sw.plan.Endpoint)
	}

	base := sw.plan.BaseSlot * status.SlotsPerDevice

	if sw.dirty {
		if err := sw.cli.WriteRegisters(sw.plan.UnitID, base, sw.block(s)); err != nil {
			return fmt.Errorf("status writer %s: block: %w", sw.plan.ScaleID, err)
		}
		sw.dirty = false
		sw.written = s
		return nil
	}

	var errs []error
	for _, f := range fields {
		if !f.changed(sw.written, s) {
			continue
		}
		if err := sw.cli.WriteRegisters(sw.plan.UnitID, base+f.slot, f.regs(s)); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", f.name, err))
			continue
		}
		f.commit(&sw.written, s)
	}

	if len(errs) > 0 {
		sw.dirty = true
		return fmt.Errorf("status writer %s: %w", sw.plan.ScaleID, errors.Join(errs...))
	}
	return nil
}

// block is the whole register block: live slots, zeroed reserve, name.
func (sw *deviceStatusWriter) block(s status.Snapshot) []uint16 {
	regs := status.Encode(s)
	copy(regs[status.SlotDeviceNameStart:status.SlotDeviceNameEnd+1], sw.nameRegs)
	return regs
}
