package pathmap

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// steamID64Base is the offset between a 64-bit Steam id and its account id.
const steamID64Base uint64 = 76561197960265728

// NormalizeAccountID accepts either form of a Steam id and returns the short
// account id used in userdata directories. An empty input stays empty.
func NormalizeAccountID(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", nil
	}

	n, err := strconv.ParseUint(id, 10, 64)
	if err != nil {
		return "", errors.Wrapf(err, "invalid steam account id %q", id)
	}

	if n >= steamID64Base {
		n -= steamID64Base
	}
	return strconv.FormatUint(n, 10), nil
}
