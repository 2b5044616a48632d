package domain

import (
	"encoding/json"
	"fmt"
)

// Candle is one OHLCV bar. Series are stored sorted ascending by
// timestamp and are immutable once loaded.
type Candle struct {
	TimestampMs int64
	Open        float64
	High        float64
	Low         float64
	Close       float64
	Volume      float64
}

// NotionalVolume returns volume priced in quote currency.
func (c Candle) NotionalVolume() float64 {
	return c.Volume * c.Close
}

// MarshalJSON encodes the candle in the on-disk tuple form
// [timestamp, open, high, low, close, volume].
func (c Candle) MarshalJSON() ([]byte, error) {
	return json.Marshal([6]float64{
		float64(c.TimestampMs), c.Open, c.High, c.Low, c.Close, c.Volume,
	})
}

// UnmarshalJSON decodes the tuple form.
func (c *Candle) UnmarshalJSON(data []byte) error {
	var tuple []float64
	if err := json.Unmarshal(data, &tuple); err != nil {
		return fmt.Errorf("decode candle tuple: %w", err)
	}
	if len(tuple) < 6 {
		return fmt.Errorf("candle tuple has %d fields, want 6", len(tuple))
	}
	c.TimestampMs = int64(tuple[0])
	c.Open = tuple[1]
	c.High = tuple[2]
	c.Low = tuple[3]
	c.Close = tuple[4]
	c.Volume = tuple[5]
	return nil
}
