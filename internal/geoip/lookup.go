// Package geoip enriches exit IPs from local MaxMind databases.
package geoip

import (
	"errors"
	"fmt"
	"net"

	"github.com/oschwald/geoip2-golang"

	"github.com/JasonVinion/Pengu/internal/model"
)

// Database bundles the optional City and ASN readers. Either path may be
// empty; lookups fill in whatever the available databases can answer.
type Database struct {
	city *geoip2.Reader
	asn  *geoip2.Reader
}

// Open loads the given mmdb files. With both paths empty it returns
// (nil, nil) and the caller runs without enrichment.
func Open(cityPath, asnPath string) (*Database, error) {
	if cityPath == "" && asnPath == "" {
		return nil, nil
	}

	var db Database
	if cityPath != "" {
		r, err := geoip2.Open(cityPath)
		if err != nil {
			return nil, fmt.Errorf("open city database: %w", err)
		}
		db.city = r
	}
	if asnPath != "" {
		r, err := geoip2.Open(asnPath)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("open asn database: %w", err)
		}
		db.asn = r
	}
	return &db, nil
}

// Lookup implements model.IPResolver.
func (d *Database) Lookup(ip string) (model.GeoInfo, error) {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return model.GeoInfo{}, errors.New("not an IP address")
	}

	var info model.GeoInfo
	if d.city != nil {
		rec, err := d.city.City(parsed)
		if err != nil {
			return model.GeoInfo{}, fmt.Errorf("city lookup: %w", err)
		}
		info.Country = rec.Country.Names["en"]
		info.City = rec.City.Names["en"]
	}
	if d.asn != nil {
		rec, err := d.asn.ASN(parsed)
		if err != nil {
			return info, fmt.Errorf("asn lookup: %w", err)
		}
		info.ISP = rec.AutonomousSystemOrganization
	}
	return info, nil
}

func (d *Database) Close() {
	if d.city != nil {
		_ = d.city.Close()
	}
	if d.asn != nil {
		_ = d.asn.Close()
	}
}
