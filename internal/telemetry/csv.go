package telemetry

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/ayusman/gaitgrip/internal/store"
)

// Kind selects which row set of a session to export.
type Kind string

const (
	KindWalk        Kind = "walk"
	KindEncumbrance Kind = "encumbrance"
)

// Column headers, in the order the analysis scripts expect.
var (
	WalkHeader = []string{
		"sceneName", "sceneNum", "iterationNum",
		"SmoothedHorizontal", "SmoothedVertical", "DirectionStability",
		"VerticalPattern", "HorizontalPattern", "AvgSpeed", "IsWalking",
		"RawMoveX", "RawMoveY", "RawMoveZ", "currentTime",
	}
	EncumbranceHeader = []string{
		"sceneName", "sceneNum", "iterationNum",
		"CurlI", "CurlM", "CurlR", "CurlP", "AvgGripCurl",
		"PinchI", "PinchM", "PinchR", "PinchP", "AvgPinch",
		"WristRotX", "WristRotY", "WristRotZ", "DeltaX", "DeltaY", "DeltaZ",
		"WristStable", "WristStableNow", "GripHeld", "PinchHeld", "Encumbrance", "currentTime",
	}
)

// Export writes the kind rows of a stored session as CSV.
func Export(w io.Writer, st *store.Store, sessionID string, kind Kind) error {
	sess, err := st.Sessions().GetByID(sessionID)
	if err != nil {
		return err
	}

	switch kind {
	case KindWalk:
		rows, err := st.Samples().WalkSamples(sessionID)
		if err != nil {
			return err
		}
		return WriteWalkCSV(w, sess, rows)
	case KindEncumbrance:
		rows, err := st.Samples().EncumbranceSamples(sessionID)
		if err != nil {
			return err
		}
		return WriteEncumbranceCSV(w, sess, rows)
	default:
		return fmt.Errorf("unknown export kind %q", kind)
	}
}

// WriteWalkCSV writes a header and one line per walk row.
// currentTime is seconds since the session started.
func WriteWalkCSV(w io.Writer, sess *store.Session, rows []store.WalkSample) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(WalkHeader); err != nil {
		return err
	}
	for _, r := range rows {
		rec := append(sessionFields(sess),
			ftoa(r.SmoothedHorizontal), ftoa(r.SmoothedVertical), ftoa(r.DirectionStability),
			ftoa(r.VerticalPattern), ftoa(r.HorizontalPattern), ftoa(r.AvgSpeed), btoa(r.IsWalking),
			ftoa(r.RawMoveX), ftoa(r.RawMoveY), ftoa(r.RawMoveZ),
			ftoa(r.RecordedAt.Sub(sess.StartedAt).Seconds()),
		)
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteEncumbranceCSV writes a header and one line per encumbrance row.
// WristStable holds the stability counter in seconds; WristStableNow is the
// per-tick flag.
func WriteEncumbranceCSV(w io.Writer, sess *store.Session, rows []store.EncumbranceSample) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(EncumbranceHeader); err != nil {
		return err
	}
	for _, r := range rows {
		rec := append(sessionFields(sess),
			ftoa(r.CurlIndex), ftoa(r.CurlMiddle), ftoa(r.CurlRing), ftoa(r.CurlPinky), ftoa(r.AvgGripCurl),
			ftoa(r.PinchIndex), ftoa(r.PinchMiddle), ftoa(r.PinchRing), ftoa(r.PinchPinky), ftoa(r.AvgPinch),
			ftoa(r.WristX), ftoa(r.WristY), ftoa(r.WristZ), ftoa(r.DeltaX), ftoa(r.DeltaY), ftoa(r.DeltaZ),
			strconv.FormatFloat(r.WristStableTime, 'f', 2, 64), btoa(r.WristStable),
			btoa(r.GripHeld), btoa(r.PinchHeld), btoa(r.Encumbered),
			ftoa(r.RecordedAt.Sub(sess.StartedAt).Seconds()),
		)
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func sessionFields(sess *store.Session) []string {
	return []string{sess.Scene, strconv.Itoa(sess.SceneNum), strconv.Itoa(sess.Iteration)}
}

func ftoa(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func btoa(v bool) string {
	if v {
		return "True"
	}
	return "False"
}
