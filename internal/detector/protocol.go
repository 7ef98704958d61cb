package detector

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"

	log "github.com/sirupsen/logrus"
)

// writeRequest frames one encoded image as a 4-byte big-endian length
// followed by the bytes.
func writeRequest(w io.Writer, image []byte) error {
	var header [4]byte
	binary.BigEndian.PutUint32(header[:], uint32(len(image)))
	if _, err := w.Write(header[:]); err != nil {
		return fmt.Errorf("write length: %w", err)
	}
	if _, err := w.Write(image); err != nil {
		return fmt.Errorf("write image: %w", err)
	}
	return nil
}

// ServiceError is a failure the service reported for a single request.
// The service stays usable afterwards.
type ServiceError struct {
	Message string
}

func (e *ServiceError) Error() string {
	return "mediapipe service: " + e.Message
}

// serviceResponse is one JSON line written by the service.
type serviceResponse struct {
	Hands []jsonHand `json:"hands"`
	Error string     `json:"error"`
}

// readResponse reads one response line. Hands with fewer than
// NumLandmarks points are dropped.
func readResponse(r *bufio.Reader) ([]HandLandmarks, error) {
	line, err := r.ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var resp serviceResponse
	if err := json.Unmarshal(line, &resp); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	if resp.Error != "" {
		return nil, &ServiceError{Message: resp.Error}
	}

	hands := make([]HandLandmarks, 0, len(resp.Hands))
	for i, h := range resp.Hands {
		lm, ok := h.toHandLandmarks()
		if !ok {
			log.Debugf("Dropping hand %d with %d landmarks", i, len(h.Points))
			continue
		}
		hands = append(hands, lm)
	}
	return hands, nil
}

type jsonHand struct {
	Points     []jsonPoint `json:"points"`
	Handedness string      `json:"handedness"`
	Score      float64     `json:"score"`
}

type jsonPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// toHandLandmarks converts a service hand; ok is false unless all
// NumLandmarks points are present.
func (h jsonHand) toHandLandmarks() (HandLandmarks, bool) {
	lm := HandLandmarks{Handedness: h.Handedness, Score: h.Score}
	if len(h.Points) < NumLandmarks {
		return lm, false
	}
	for i := range lm.Points {
		p := h.Points[i]
		lm.Points[i] = Point3D{X: p.X, Y: p.Y, Z: p.Z}
	}
	return lm, true
}
