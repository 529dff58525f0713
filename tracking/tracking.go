// Package tracking encodes the payload printed as a QR code on drug
// packaging: a base64 JSON document naming the batch, the drug and its
// manufacturer.
package tracking

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/skip2/go-qrcode"

	"github.com/tranvictor/medchain/contract"
)

const (
	Version = "1.0"
	MaxAge  = 365 * 24 * time.Hour
)

var (
	ErrInvalid       = errors.New("invalid tracking data")
	ErrBatchMismatch = errors.New("tracking data is for another batch")
	ErrExpired       = errors.New("tracking data expired")
)

// Payload field names and units are fixed by the codes already printed:
// manufactureDate is in unix seconds, timestamp in unix milliseconds.
type Payload struct {
	BatchID         string `json:"batchId"`
	DrugName        string `json:"drugName"`
	Manufacturer    string `json:"manufacturer"`
	ManufactureDate int64  `json:"manufactureDate"`
	Timestamp       int64  `json:"timestamp"`
	Version         string `json:"version"`
}

func New(b contract.DrugBatch, now time.Time) Payload {
	return Payload{
		BatchID:         strconv.FormatUint(b.ID, 10),
		DrugName:        b.DrugName,
		Manufacturer:    b.Manufacturer.Hex(),
		ManufactureDate: b.ManufactureDate.Unix(),
		Timestamp:       now.UnixMilli(),
		Version:         Version,
	}
}

func (p Payload) Issued() time.Time {
	return time.UnixMilli(p.Timestamp)
}

// Batch is the batch id, zero when it isn't a number.
func (p Payload) Batch() uint64 {
	id, err := strconv.ParseUint(p.BatchID, 10, 64)
	if err != nil {
		return 0
	}
	return id
}

func Encode(p Payload) (string, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

func Decode(s string) (Payload, error) {
	var p Payload
	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return p, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if err := json.Unmarshal(data, &p); err != nil {
		return p, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if p.BatchID == "" {
		return p, fmt.Errorf("%w: no batch id", ErrInvalid)
	}
	return p, nil
}

// Validate checks the payload belongs to batchID and was issued within
// MaxAge of now.
func Validate(p Payload, batchID uint64, now time.Time) error {
	if p.BatchID == "" {
		return fmt.Errorf("%w: no batch id", ErrInvalid)
	}
	if p.BatchID != strconv.FormatUint(batchID, 10) {
		return fmt.Errorf("%w: got batch %s, expected %d", ErrBatchMismatch, p.BatchID, batchID)
	}
	if now.Sub(p.Issued()) > MaxAge {
		return fmt.Errorf("%w: issued %s", ErrExpired, p.Issued().Format(time.DateOnly))
	}
	return nil
}

// QR renders s as a QR code of half-height blocks for a terminal.
func QR(s string) (string, error) {
	code, err := qrcode.New(s, qrcode.Medium)
	if err != nil {
		return "", err
	}
	return code.ToSmallString(false), nil
}
