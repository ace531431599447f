package txc

import (
	"encoding/xml"
	"errors"
	"io"
	"strings"
)

// OperatingProfile keeps the raw inner XML around and parses it lazily.
// The structure is too irregular for struct tags (day names are element
// names) so it walks the element chain instead.
type OperatingProfile struct {
	XMLValue string `xml:",innerxml" json:"-"`

	RegularDayType          []string
	HolidaysOnly            bool
	BankHolidayOperation    []string
	BankHolidayNonOperation []string

	ServicedOrganisationDaysOfOperation    []string
	ServicedOrganisationDaysOfNonOperation []string

	SpecialDaysOperation    []DateRange
	SpecialDaysNonOperation []DateRange
}

type DateRange struct {
	StartDate string
	EndDate   string
	Note      string
}

func (op *OperatingProfile) Parse() error {
	op.RegularDayType = nil
	op.BankHolidayOperation = nil
	op.BankHolidayNonOperation = nil
	op.ServicedOrganisationDaysOfOperation = nil
	op.ServicedOrganisationDaysOfNonOperation = nil
	op.SpecialDaysOperation = nil
	op.SpecialDaysNonOperation = nil
	op.HolidaysOnly = false

	elementChain := []string{}

	d := xml.NewDecoder(strings.NewReader(op.XMLValue))
	for {
		tok, err := d.Token()
		if err == io.EOF {
			break
		} else if err != nil {
			return err
		} else if tok == nil {
			break
		}

		switch ty := tok.(type) {
		case xml.StartElement:
			elementChain = append(elementChain, ty.Name.Local)

			switch elementChain[0] {
			case "RegularDayType":
				if len(elementChain) == 2 && elementChain[1] == "HolidaysOnly" {
					op.HolidaysOnly = true
				}
				if len(elementChain) == 3 && elementChain[1] == "DaysOfWeek" {
					op.RegularDayType = append(op.RegularDayType, elementChain[2])
				}
			case "BankHolidayOperation":
				if len(elementChain) == 3 {
					switch elementChain[1] {
					case "DaysOfOperation":
						op.BankHolidayOperation = append(op.BankHolidayOperation, elementChain[2])
					case "DaysOfNonOperation":
						op.BankHolidayNonOperation = append(op.BankHolidayNonOperation, elementChain[2])
					}
				}
			case "ServicedOrganisationDayType":
				if len(elementChain) == 4 && elementChain[2] == "WorkingDays" {
					var ref struct {
						Value string `xml:",chardata"`
					}
					if elementChain[3] == "ServicedOrganisationRef" {
						if err := d.DecodeElement(&ref, &ty); err != nil {
							return err
						}
						elementChain = elementChain[:len(elementChain)-1]

						switch elementChain[1] {
						case "DaysOfOperation":
							op.ServicedOrganisationDaysOfOperation = append(op.ServicedOrganisationDaysOfOperation, ref.Value)
						case "DaysOfNonOperation":
							op.ServicedOrganisationDaysOfNonOperation = append(op.ServicedOrganisationDaysOfNonOperation, ref.Value)
						}
					}
				}
			case "SpecialDaysOperation":
				if len(elementChain) == 3 && elementChain[2] == "DateRange" {
					var dateRange DateRange
					if err := d.DecodeElement(&dateRange, &ty); err != nil {
						return err
					}
					operation := elementChain[1]
					elementChain = elementChain[:len(elementChain)-1]

					switch operation {
					case "DaysOfOperation":
						op.SpecialDaysOperation = append(op.SpecialDaysOperation, dateRange)
					case "DaysOfNonOperation":
						op.SpecialDaysNonOperation = append(op.SpecialDaysNonOperation, dateRange)
					}
				}
			}
		case xml.EndElement:
			elementChain = elementChain[:len(elementChain)-1]
		}
	}

	if op.HolidaysOnly && len(op.RegularDayType) > 0 {
		return errors.New("RegularDayType and HolidaysOnly are mutually exclusive")
	}

	return nil
}
