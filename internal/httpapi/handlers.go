// internal/httpapi/handlers.go
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gorilla/mux"

	"github.com/SeedmyUgaraes/Massa-sub000/internal/camera"
	"github.com/SeedmyUgaraes/Massa-sub000/internal/device"
	"github.com/SeedmyUgaraes/Massa-sub000/internal/isapi"
	"github.com/SeedmyUgaraes/Massa-sub000/internal/overlay"
)

// ScaleView is one entry of GET /api/scales.
type ScaleView struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Address   string     `json:"address"`
	Enabled   bool       `json:"enabled"`
	Online    bool       `json:"online"`
	NetGrams  float64    `json:"net_g"`
	TareGrams float64    `json:"tare_g"`
	Stable    bool       `json:"stable"`
	Protocol  string     `json:"protocol"`
	Overlay   string     `json:"overlay"`
	LastSeen  string     `json:"last_seen"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// BindingView is one overlay slot of a camera.
type BindingView struct {
	ScaleID   string `json:"scale_id"`
	OverlayID int    `json:"overlay_id"`
	Enabled   bool   `json:"enabled"`
	X         int    `json:"x"`
	Y         int    `json:"y"`
}

// CameraView is one entry of GET /api/cameras.
type CameraView struct {
	ID       string        `json:"id"`
	Name     string        `json:"name"`
	Endpoint string        `json:"endpoint"`
	Enabled  bool          `json:"enabled"`
	Status   string        `json:"status"`
	Bindings []BindingView `json:"bindings"`
}

// ScreenView is the picture geometry of a camera.
type ScreenView struct {
	Resolution isapi.Size `json:"resolution"`
	Normalized isapi.Size `json:"normalized"`
}

// CameraDetail is GET /api/cameras/{id}.
type CameraDetail struct {
	CameraView
	Screen *ScreenView `json:"screen,omitempty"`
}

// screenTimeout bounds the camera round-trips of one detail request.
const screenTimeout = 5 * time.Second

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"scales":  s.deps.Scales.Len(),
		"cameras": len(s.deps.Cameras.List()),
	})
}

func (s *Server) listScales(w http.ResponseWriter, _ *http.Request) {
	now := s.deps.Now()

	list := s.deps.Scales.List()
	out := make([]ScaleView, 0, len(list))
	for _, sc := range list {
		out = append(out, s.scaleView(sc, now))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) scaleView(sc *device.Scale, now time.Time) ScaleView {
	st := sc.State()

	v := ScaleView{
		ID:        sc.ID,
		Name:      sc.Label(),
		Address:   sc.Address,
		Enabled:   sc.Enabled,
		Online:    st.IsOnline(now, s.deps.Render.OfflineThreshold),
		NetGrams:  st.NetGrams,
		TareGrams: st.TareGrams,
		Stable:    st.Stable,
		Protocol:  st.Protocol.String(),
		Overlay:   overlay.RenderState(st, s.deps.Render, now),
		LastSeen:  "never",
	}
	if !st.LastUpdate.IsZero() {
		at := st.LastUpdate
		v.UpdatedAt = &at
		v.LastSeen = humanize.RelTime(at, now, "ago", "from now")
	}
	return v
}

func (s *Server) listCameras(w http.ResponseWriter, _ *http.Request) {
	list := s.deps.Cameras.List()
	out := make([]CameraView, 0, len(list))

	for _, c := range list {
		out = append(out, s.cameraView(c))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) cameraView(c *camera.Camera) CameraView {
	v := CameraView{
		ID:       c.ID,
		Name:     c.Label(),
		Endpoint: c.Endpoint(),
		Enabled:  c.Enabled,
		Status:   s.statusOf(c.ID),
		Bindings: make([]BindingView, 0, len(c.Bindings)),
	}
	for i, b := range c.Bindings {
		x, y := c.Position(i)
		v.Bindings = append(v.Bindings, BindingView{
			ScaleID:   b.ScaleID,
			OverlayID: b.OverlayID,
			Enabled:   b.Enabled,
			X:         x,
			Y:         y,
		})
	}
	return v
}

func (s *Server) getCamera(w http.ResponseWriter, r *http.Request) {
	c := s.deps.Cameras.Get(mux.Vars(r)["id"])
	if c == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown camera"})
		return
	}

	out := CameraDetail{CameraView: s.cameraView(c)}
	if p := s.screenReader(c); p != nil {
		ctx, cancel := context.WithTimeout(r.Context(), screenTimeout)
		defer cancel()
		out.Screen = &ScreenView{
			Resolution: p.GetVideoResolution(ctx, c.Host, c.Port),
			Normalized: p.GetNormalizedScreenSize(ctx, c.Host, c.Port),
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) cameraStatus(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if s.deps.Cameras.Get(id) == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown camera"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": id, "status": s.statusOf(id)})
}

// statusOf is "Unknown" until the engine has ticked the camera once.
func (s *Server) statusOf(id string) string {
	if s.deps.Status == nil {
		return "Unknown"
	}
	if text, ok := s.deps.Status.GetCameraStatus(id); ok {
		return text
	}
	return "Unknown"
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
