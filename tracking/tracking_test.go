package tracking

import (
	"encoding/base64"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tranvictor/medchain/contract"
)

var manufacturer = common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")

func testBatch() contract.DrugBatch {
	return contract.DrugBatch{
		ID:              12,
		DrugName:        "Paracetamol 500mg",
		Manufacturer:    manufacturer,
		Quantity:        big.NewInt(1000),
		ManufactureDate: time.Unix(1700000000, 0),
	}
}

func TestEncodeDecode(t *testing.T) {
	now := time.UnixMilli(1760000000123)
	s, err := Encode(New(testBatch(), now))
	require.NoError(t, err)

	p, err := Decode(s)
	require.NoError(t, err)
	assert.Equal(t, "12", p.BatchID)
	assert.Equal(t, uint64(12), p.Batch())
	assert.Equal(t, "Paracetamol 500mg", p.DrugName)
	assert.Equal(t, manufacturer.Hex(), p.Manufacturer)
	assert.Equal(t, int64(1700000000), p.ManufactureDate)
	assert.Equal(t, now, p.Issued())
	assert.Equal(t, Version, p.Version)
}

func TestDecodeBrowserPayload(t *testing.T) {
	raw := `{"batchId":"3","drugName":"Insulin","manufacturer":"0x70997970C51812dc3A010C7d01b50e0d17dc79C8","manufactureDate":1700000000,"timestamp":1760000000000,"version":"1.0"}`
	p, err := Decode(" " + base64.StdEncoding.EncodeToString([]byte(raw)) + "\n")
	require.NoError(t, err)
	assert.Equal(t, uint64(3), p.Batch())
	assert.Equal(t, "Insulin", p.DrugName)
}

func TestDecodeRejectsGarbage(t *testing.T) {
	for _, s := range []string{
		"",
		"not base64!",
		base64.StdEncoding.EncodeToString([]byte("not json")),
		base64.StdEncoding.EncodeToString([]byte(`{"drugName":"Insulin"}`)),
	} {
		_, err := Decode(s)
		assert.ErrorIs(t, err, ErrInvalid, s)
	}
}

func TestValidate(t *testing.T) {
	issued := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	p := New(testBatch(), issued)

	assert.NoError(t, Validate(p, 12, issued.Add(time.Hour)))
	assert.NoError(t, Validate(p, 12, issued.Add(MaxAge)))
	assert.ErrorIs(t, Validate(p, 13, issued), ErrBatchMismatch)
	assert.ErrorIs(t, Validate(p, 12, issued.Add(MaxAge+time.Second)), ErrExpired)
	assert.ErrorIs(t, Validate(Payload{}, 12, issued), ErrInvalid)
}

func TestQR(t *testing.T) {
	s, err := Encode(New(testBatch(), time.Now()))
	require.NoError(t, err)
	code, err := QR(s)
	require.NoError(t, err)
	assert.Greater(t, len(code), len(s))
	assert.Contains(t, code, "\n")
}
