package audio

import (
	"encoding/base64"
)

// Package audio provides audio format conversion helpers for the g711 mu-law
// streams exchanged with the carrier and the realtime speech endpoint.

// MuLawSampleRate is the sample rate of carrier audio.
const MuLawSampleRate = 8000

// MuLawToPCM16 decodes mu-law bytes into 16-bit linear samples.
func MuLawToPCM16(mulaw []byte) []int16 {
	pcm := make([]int16, len(mulaw))
	for i, b := range mulaw {
		pcm[i] = mulawToLinear(b)
	}
	return pcm
}

// PCM16ToMuLaw encodes 16-bit linear samples as mu-law bytes.
func PCM16ToMuLaw(pcm []int16) []byte {
	mulaw := make([]byte, len(pcm))
	for i, sample := range pcm {
		mulaw[i] = linearToMulaw(sample)
	}
	return mulaw
}

func Base64ToBytes(base64String string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(base64String)
}

func BytesToBase64(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

// DurationSeconds returns the play time of a mu-law payload.
func DurationSeconds(mulaw []byte) float64 {
	return float64(len(mulaw)) / float64(MuLawSampleRate)
}

func mulawToLinear(mulawByte byte) int16 {
	const bias = 0x84

	// Invert all bits
	mulawByte = ^mulawByte

	// Extract sign, exponent, and mantissa
	sign := mulawByte & 0x80
	exponent := (mulawByte >> 4) & 0x07
	mantissa := mulawByte & 0x0F

	sample := int16(mantissa<<3 | 0x84)
	sample <<= exponent
	sample -= bias

	if sign != 0 {
		return -sample
	}
	return sample
}

func linearToMulaw(sample int16) byte {
	const bias = 0x84
	const clip = 32635

	sign := uint8(0)
	s := int32(sample)
	if s < 0 {
		sign = 0x80
		s = -s
	}

	if s > clip {
		s = clip
	}

	s += bias

	// Find the segment from the position of the most significant bit
	exponent := uint8(7)
	for mask := int32(0x4000); mask != 0 && (s&mask) == 0; mask >>= 1 {
		exponent--
	}

	mantissa := uint8((s >> (exponent + 3)) & 0x0F)

	return ^(sign | (exponent << 4) | mantissa)
}
