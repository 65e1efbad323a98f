// internal/camera/builder.go
package camera

import (
	cfg "github.com/SeedmyUgaraes/Massa-sub000/internal/config"
	"github.com/SeedmyUgaraes/Massa-sub000/internal/device"
)

// BuildRegistry creates the camera registry from the config file and links
// every binding to its scale in scales. Assumes Validate and Normalize ran.
func BuildRegistry(c *cfg.Config, scales *device.Registry) (*Registry, error) {
	reg := NewRegistry()

	for _, cc := range c.Cameras {
		cam := &Camera{
			ID:         cc.ID,
			Name:       cc.Name,
			Host:       cc.Host,
			Port:       cc.Port,
			Username:   cc.Username,
			Password:   cc.Password,
			Enabled:    cc.IsEnabled(),
			BaseX:      cc.BaseX,
			BaseY:      cc.BaseY,
			LineHeight: cc.LineHeight,
		}

		for _, bc := range cc.Bindings {
			b := Binding{
				ScaleID:      bc.Scale,
				OverlayID:    bc.OverlayID,
				Enabled:      bc.IsEnabled(),
				AutoPosition: bc.IsAutoPosition(),
				X:            bc.X,
				Y:            bc.Y,
			}
			if scales != nil {
				b.Scale = scales.Get(bc.Scale)
			}
			cam.Bindings = append(cam.Bindings, b)
		}

		if err := reg.Add(cam); err != nil {
			return nil, err
		}
	}
	return reg, nil
}
