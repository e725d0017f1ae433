package spotify

import (
	"encoding/csv"
	"fmt"
	"net"
	"os"
	"strconv"
)

// Credential is one immutable (name, client_id, client_secret) identity
// loaded once from clients.csv.
type Credential struct {
	Name   string
	ID     string
	Secret string
}

// Proxy is one egress proxy slot, or, with Direct set, direct (no
// proxy) operation.
type Proxy struct {
	Direct bool
	IP     net.IP
	Port   uint16
}

// String renders the proxy as a host:port pair usable as an HTTP proxy
// URL's authority; empty for direct.
func (p Proxy) String() string {
	if p.Direct {
		return ""
	}
	return fmt.Sprintf("%s:%d", p.IP.String(), p.Port)
}

// LoadCredentials parses clients.csv: header row, then name,id,secret
// records. Returns ConfigInvalid-flavored error if the file is missing,
// malformed, or empty.
func LoadCredentials(path string) ([]Credential, error) {
	records, err := readCSVRecords(path)
	if err != nil {
		return nil, fmt.Errorf("spotify: load credentials: %w: %w", err, ErrConfigInvalid)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("spotify: load credentials: %s has no credential rows: %w", path, ErrConfigInvalid)
	}

	creds := make([]Credential, 0, len(records))
	for i, rec := range records {
		if len(rec) < 3 {
			return nil, fmt.Errorf("spotify: load credentials: row %d of %s has %d fields, want 3: %w", i, path, len(rec), ErrConfigInvalid)
		}
		creds = append(creds, Credential{Name: rec[0], ID: rec[1], Secret: rec[2]})
	}
	return creds, nil
}

// LoadProxies parses proxies.csv: header row, then ip_address,port
// records. An empty or missing file is not an error here — the ring
// falls back to direct connections when proxies are disabled.
func LoadProxies(path string) ([]Proxy, error) {
	records, err := readCSVRecords(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("spotify: load proxies: %w", err)
	}

	proxies := make([]Proxy, 0, len(records))
	for i, rec := range records {
		if len(rec) < 2 {
			return nil, fmt.Errorf("spotify: load proxies: row %d of %s has %d fields, want 2: %w", i, path, len(rec), ErrConfigInvalid)
		}
		ip := net.ParseIP(rec[0]).To4()
		if ip == nil {
			return nil, fmt.Errorf("spotify: load proxies: row %d of %s has invalid ipv4 %q: %w", i, path, rec[0], ErrConfigInvalid)
		}
		port, err := strconv.ParseUint(rec[1], 10, 16)
		if err != nil {
			return nil, fmt.Errorf("spotify: load proxies: row %d of %s has invalid port %q: %w", i, path, rec[1], ErrConfigInvalid)
		}
		proxies = append(proxies, Proxy{IP: ip, Port: uint16(port)})
	}
	return proxies, nil
}

// readCSVRecords reads a header+body CSV file and returns the body rows
// (header discarded).
func readCSVRecords(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true
	all, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, nil
	}
	return all[1:], nil
}
