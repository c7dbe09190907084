// internal/service/notification/generator.go
package notification

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"fleetcare-service/internal/domain/device"
	"fleetcare-service/internal/domain/notification"
	"fleetcare-service/internal/domain/vehicle"
	"fleetcare-service/internal/pkg/dates"
)

// DefaultLookahead is how far ahead of a due date an upcoming alert appears.
const DefaultLookahead = 30 * 24 * time.Hour

// SkipFunc is told about every date field the generator could not parse.
type SkipFunc func(itemType notification.ItemType, itemID string, category notification.Category, value string, err error)

// Generator derives due and expired alerts from vehicles and devices.
// It holds no state between calls and never modifies its inputs.
type Generator struct {
	Lookahead time.Duration
	OnSkip    SkipFunc
}

func NewGenerator(lookahead time.Duration, onSkip SkipFunc) *Generator {
	if lookahead <= 0 {
		lookahead = DefaultLookahead
	}
	return &Generator{Lookahead: lookahead, OnSkip: onSkip}
}

// Generate returns expired alerts first, then upcoming ones, each group
// ordered by date and then by ID.
func (g *Generator) Generate(vehicles []vehicle.Vehicle, devices []device.Device, now time.Time) []notification.Notification {
	p := pass{
		gen:     g,
		now:     now,
		horizon: now.Add(g.lookahead()),
		seen:    make(map[string]struct{}),
		out:     make([]notification.Notification, 0),
	}

	vehicleNames := make(map[string]string, len(vehicles))
	for i := range vehicles {
		v := &vehicles[i]
		name := vehicleDisplayName(v)
		if _, ok := vehicleNames[v.ID]; !ok {
			vehicleNames[v.ID] = name
		}

		p.vehicleDate(v, name, notification.CategoryInsurance, v.InsuranceExpiry)
		p.vehicleDate(v, name, notification.CategoryInspection, v.InspectionDue)
		p.vehicleDate(v, name, notification.CategoryService, v.NextServiceDate)
	}

	for i := range devices {
		d := &devices[i]
		if d.NextServiceDate == nil {
			continue
		}
		date, ok := p.parse(notification.ItemDevice, d.ID, notification.CategoryDeviceService, *d.NextServiceDate)
		if !ok {
			continue
		}

		vehicleName := ""
		if d.VehicleID != nil {
			vehicleName = vehicleNames[*d.VehicleID]
		}
		deviceName := deviceDisplayName(d)

		p.add(notification.Notification{
			ID:          notification.MakeID(notification.CategoryDeviceService, d.ID),
			Category:    notification.CategoryDeviceService,
			ItemType:    notification.ItemDevice,
			ItemID:      d.ID,
			Date:        date,
			VehicleName: vehicleName,
			DeviceName:  deviceName,
		}, func(expired bool) string {
			return deviceMessage(deviceName, vehicleName, expired)
		})
	}

	sortNotifications(p.out)
	return p.out
}

func (g *Generator) lookahead() time.Duration {
	if g.Lookahead <= 0 {
		return DefaultLookahead
	}
	return g.Lookahead
}

// pass is the working state of one Generate call.
type pass struct {
	gen     *Generator
	now     time.Time
	horizon time.Time
	seen    map[string]struct{}
	out     []notification.Notification
}

func (p *pass) vehicleDate(v *vehicle.Vehicle, name string, category notification.Category, value *string) {
	if value == nil {
		return
	}
	date, ok := p.parse(notification.ItemVehicle, v.ID, category, *value)
	if !ok {
		return
	}

	p.add(notification.Notification{
		ID:          notification.MakeID(category, v.ID),
		Category:    category,
		ItemType:    notification.ItemVehicle,
		ItemID:      v.ID,
		Date:        date,
		VehicleName: name,
	}, func(expired bool) string {
		return vehicleMessage(category, name, expired)
	})
}

// parse treats a blank value as absent. Anything else that fails to parse
// is reported and skipped.
func (p *pass) parse(itemType notification.ItemType, itemID string, category notification.Category, value string) (time.Time, bool) {
	if strings.TrimSpace(value) == "" {
		return time.Time{}, false
	}
	date, err := dates.Parse(value)
	if err != nil {
		if p.gen.OnSkip != nil {
			p.gen.OnSkip(itemType, itemID, category, value, err)
		}
		return time.Time{}, false
	}
	return date, true
}

func (p *pass) add(n notification.Notification, message func(expired bool) string) {
	n.Expired = n.Date.Before(p.now)
	if !n.Expired && n.Date.After(p.horizon) {
		return
	}
	if _, dup := p.seen[n.ID]; dup {
		return
	}
	p.seen[n.ID] = struct{}{}

	n.Message = message(n.Expired)
	p.out = append(p.out, n)
}

func sortNotifications(items []notification.Notification) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.Expired != b.Expired {
			return a.Expired
		}
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		return a.ID < b.ID
	})
}

func vehicleMessage(category notification.Category, name string, expired bool) string {
	switch category {
	case notification.CategoryInsurance:
		if expired {
			return fmt.Sprintf("Insurance for %s has expired", name)
		}
		return fmt.Sprintf("Insurance for %s expires soon", name)
	case notification.CategoryInspection:
		if expired {
			return fmt.Sprintf("Inspection for %s is overdue", name)
		}
		return fmt.Sprintf("Inspection for %s is due soon", name)
	default:
		if expired {
			return fmt.Sprintf("Service for %s is overdue", name)
		}
		return fmt.Sprintf("Service for %s is due soon", name)
	}
}

func deviceMessage(deviceName, vehicleName string, expired bool) string {
	subject := "device " + deviceName
	if vehicleName != "" {
		subject = fmt.Sprintf("device %s (%s)", deviceName, vehicleName)
	}
	if expired {
		return fmt.Sprintf("Service for %s is overdue", subject)
	}
	return fmt.Sprintf("Service for %s is due soon", subject)
}

func vehicleDisplayName(v *vehicle.Vehicle) string {
	if name := strings.TrimSpace(v.Name); name != "" {
		return name
	}
	var parts []string
	if v.Make != nil && *v.Make != "" {
		parts = append(parts, *v.Make)
	}
	if v.Model != nil && *v.Model != "" {
		parts = append(parts, *v.Model)
	}
	if len(parts) > 0 {
		return strings.Join(parts, " ")
	}
	if v.NumberPlate != nil && *v.NumberPlate != "" {
		return *v.NumberPlate
	}
	return v.ID
}

func deviceDisplayName(d *device.Device) string {
	if name := strings.TrimSpace(d.Name); name != "" {
		return name
	}
	if d.SerialNumber != nil && *d.SerialNumber != "" {
		return *d.SerialNumber
	}
	return d.ID
}
