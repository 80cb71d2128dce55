package schedule

import (
	"io"

	"github.com/gocarina/gocsv"
	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"

	"github.com/sells-group/salestax/internal/model"
)

// csvRecord is the on-disk row of a schedule file.
type csvRecord struct {
	Region           string `csv:"region"`
	Jurisdiction     string `csv:"jurisdiction"`
	SubJurisdiction  string `csv:"sub_jurisdiction"`
	ReportingCode    string `csv:"reporting_code"`
	SpecialDistricts string `csv:"special_districts"`
	CompositeRate    string `csv:"composite_rate"`
	RegionRate       string `csv:"region_rate"`
	CountyRate       string `csv:"county_rate"`
	CityRate         string `csv:"city_rate"`
	SpecialRates     string `csv:"special_rates"`
}

// WriteCSV writes records with a header row. List columns are JSON-encoded.
func WriteCSV(w io.Writer, records []model.ScheduleRecord) error {
	rows := make([]*csvRecord, 0, len(records))
	for _, r := range records {
		names, err := model.EncodeNames(r.SpecialDistricts())
		if err != nil {
			return err
		}
		specials, err := model.EncodeSpecialRates(r.SpecialRates)
		if err != nil {
			return err
		}
		sub := r.SubJurisdiction
		if sub == "" {
			sub = model.NoSubJurisdiction
		}
		rows = append(rows, &csvRecord{
			Region:           r.Region,
			Jurisdiction:     r.Jurisdiction,
			SubJurisdiction:  sub,
			ReportingCode:    r.ReportingCode,
			SpecialDistricts: names,
			CompositeRate:    r.CompositeRate.String(),
			RegionRate:       r.RegionRate.String(),
			CountyRate:       r.CountyRate.String(),
			CityRate:         r.CityRate.String(),
			SpecialRates:     specials,
		})
	}
	if err := gocsv.Marshal(rows, w); err != nil {
		return eris.Wrap(err, "schedule: write csv")
	}
	return nil
}

// ReadCSV parses a schedule file written by WriteCSV.
func ReadCSV(r io.Reader) ([]model.ScheduleRecord, error) {
	var rows []*csvRecord
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return nil, eris.Wrap(err, "schedule: read csv")
	}
	out := make([]model.ScheduleRecord, 0, len(rows))
	for i, row := range rows {
		rec, err := row.record()
		if err != nil {
			return nil, eris.Wrapf(err, "schedule: csv row %d", i+2)
		}
		out = append(out, rec)
	}
	return out, nil
}

func (c *csvRecord) record() (model.ScheduleRecord, error) {
	var (
		rec model.ScheduleRecord
		err error
	)
	rec.Region = c.Region
	rec.Jurisdiction = c.Jurisdiction
	rec.SubJurisdiction = c.SubJurisdiction
	if rec.SubJurisdiction == "" {
		rec.SubJurisdiction = model.NoSubJurisdiction
	}
	rec.ReportingCode = c.ReportingCode
	if rec.CompositeRate, err = parseDecimal("composite_rate", c.CompositeRate); err != nil {
		return rec, err
	}
	if rec.RegionRate, err = parseDecimal("region_rate", c.RegionRate); err != nil {
		return rec, err
	}
	if rec.CountyRate, err = parseDecimal("county_rate", c.CountyRate); err != nil {
		return rec, err
	}
	if rec.CityRate, err = parseDecimal("city_rate", c.CityRate); err != nil {
		return rec, err
	}
	if rec.SpecialRates, err = model.DecodeSpecialRates(c.SpecialRates); err != nil {
		return rec, err
	}
	return rec, nil
}

func parseDecimal(field, s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, eris.Wrapf(err, "parse %s %q", field, s)
	}
	return d, nil
}
