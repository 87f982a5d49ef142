package eventlog

import (
	"github.com/rzbill/devlog/internal/chain"
)

// Default implementations used when a handler lacks an optional interface.

func appendBodyFlat(h Handler, hdr, body []byte) error {
	buf := make([]byte, 0, len(hdr)+len(body))
	buf = append(buf, hdr...)
	buf = append(buf, body...)
	return h.Append(buf)
}

func appendChainFlat(h Handler, c *chain.Chain) (chain.Disposition, error) {
	if err := h.Append(c.Bytes()); err != nil {
		return chain.ReturnedToCaller, err
	}
	c.Release()
	return chain.Consumed, nil
}

func readChainFlat(h Handler, loc Locator, c *chain.Chain, off, n int) (int, error) {
	buf := make([]byte, n)
	got, err := h.Read(loc, buf, off)
	if got > 0 {
		c.Append(buf[:got])
	}
	return got, err
}
