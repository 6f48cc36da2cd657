// Package universe loads the fixed company universe from its YAML seed file.
package universe

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/prachitbhike/insurintel-sub000/internal/model"
)

type seedFile struct {
	Companies []seedCompany `yaml:"companies"`
}

type seedCompany struct {
	CIK       string `yaml:"cik"`
	Ticker    string `yaml:"ticker"`
	Name      string `yaml:"name"`
	Sector    string `yaml:"sector"`
	SubSector string `yaml:"sub_sector"`
}

// Load reads and validates the seed file. Every entry must carry a CIK, a
// ticker, and a known sector; a bad row fails the whole load so a typo never
// silently shrinks the universe.
func Load(path string) ([]model.Company, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "universe: read %s", path)
	}

	var f seedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, eris.Wrapf(err, "universe: parse %s", path)
	}
	if len(f.Companies) == 0 {
		return nil, eris.Errorf("universe: %s lists no companies", path)
	}

	seen := make(map[string]bool, len(f.Companies))
	companies := make([]model.Company, 0, len(f.Companies))
	for i, c := range f.Companies {
		if c.CIK == "" {
			return nil, eris.Errorf("universe: entry %d has no cik", i)
		}
		if seen[c.CIK] {
			return nil, eris.Errorf("universe: duplicate cik %s", c.CIK)
		}
		seen[c.CIK] = true
		if c.Ticker == "" {
			return nil, eris.Errorf("universe: cik %s has no ticker", c.CIK)
		}
		sector, err := model.ParseSector(c.Sector)
		if err != nil {
			return nil, eris.Wrapf(err, "universe: cik %s", c.CIK)
		}
		companies = append(companies, model.Company{
			CIK:       c.CIK,
			Ticker:    c.Ticker,
			Name:      c.Name,
			Sector:    sector,
			SubSector: c.SubSector,
		})
	}
	return companies, nil
}
