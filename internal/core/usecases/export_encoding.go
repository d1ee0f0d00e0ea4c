package usecases

import (
	"bytes"
	"encoding/xml"
	"strconv"
	"strings"

	"github.com/gemfoundation/exposure/internal/core/domain"
)

// CopyrightNotice is attached to every exported document.
const CopyrightNotice = ` Version 1.0 released on 31.01.2013

 Copyright (C) 2013 GEM Foundation

 Contributions by: see http://www.globalquakemodel.org/contributors

 You may use this work under the terms of the CC-BY-NC-SA 3.0 (unported)
 [http://creativecommons.org/licenses/by-nc-sa/3.0/]

 THE WORK IS PROTECTED BY COPYRIGHT AND/OR OTHER APPLICABLE LAW. INSOFAR
 AS THIS WORK IS PROTECTED BY LAWS THAT NEIGHBOUR OR ARE SIMILARLY RELATED
 TO COPYRIGHT, SUCH AS DATABASE RIGHTS AS INTRODUCED IN EUROPE BY THE
 DIRECTIVE 96/9/EC, YOU ALSO MAY USE THIS WORK UNDER THE TERMS OF
 CC-BY-NC-SA 3.0 (unported).
 [http://creativecommons.org/licenses/by-nc-sa/3.0/]

 ANY USE OF THE WORK OTHER THAN AS AUTHORIZED UNDER THIS LICENSE OR
 DIRECTLY ALLOWED BY THE APPLICABLE LAW IS PROHIBITED.

 If you have any questions or if you wish to seek permission to use this
 data beyond what is offered by CC-BY-NC-SA 3.0 (unported), please contact
 the GEM Foundation at: licensing@globalquakemodel.org

 More information on licensing: http://www.globalquakemodel.org/licensing
`

const (
	buildingCSVHeader   = "ISO, pop_calculated_value, pop_cell_ID, lon, lat, study_region, gadm_level_id, GEM_taxonomy\n"
	populationCSVHeader = "ISO, pop_value, pop_cell_ID, lon, lat, study_region\n"

	xmlDeclaration = "<?xml version='1.0' encoding='utf-8'?>\n"

	nrmlHeader = `
<nrml xmlns="http://openquake.org/xmlns/nrml/0.4"
      xmlns:gml="http://www.opengis.net/gml">
    <exposureModel gml:id="ep">
        <exposureList gml:id="exposure" assetCategory="population">
            <gml:description>Source: OQP exposure export tool</gml:description>
`
	nrmlFooter = `
        </exposureList>
    </exposureModel>
</nrml>
`

	// PopulationTaxonomy tags population-only NRML assets.
	PopulationTaxonomy = "POP"
)

// Encoder turns assets into document chunks.
type Encoder interface {
	Header() [][]byte
	Record(a domain.Asset) []byte
	Footer() [][]byte
}

// NewEncoder selects the encoder for an export kind and output format.
func NewEncoder(kind domain.ExportKind, format domain.OutputFormat) (Encoder, error) {
	switch format {
	case domain.FormatCSV:
		return csvEncoder{population: kind == domain.ExportPopulation}, nil
	case domain.FormatNRML:
		return nrmlEncoder{population: kind == domain.ExportPopulation}, nil
	}
	return nil, &domain.UnsupportedFormatError{Format: string(format)}
}

// CopyrightCSV prefixes every line of text with '#'.
func CopyrightCSV(text string) string {
	lines := strings.Split(strings.TrimRight(text, "\n"), "\n")
	for i, l := range lines {
		lines[i] = "#" + l
	}
	return strings.Join(lines, "\n") + "\n"
}

// CopyrightNRML wraps text in an XML comment.
func CopyrightNRML(text string) string {
	return "<!-- \n" + strings.TrimRight(text, "\n") + "\n -->\n"
}

type csvEncoder struct {
	population bool
}

func (e csvEncoder) Header() [][]byte {
	header := buildingCSVHeader
	if e.population {
		header = populationCSVHeader
	}
	return [][]byte{[]byte(CopyrightCSV(CopyrightNotice)), []byte(header)}
}

func (e csvEncoder) Record(a domain.Asset) []byte {
	fields := []string{
		a.ISO,
		domain.FormatFloat(a.Value),
		strconv.FormatInt(a.GridID, 10),
		domain.FormatFloat(a.Lon),
		domain.FormatFloat(a.Lat),
		strconv.FormatInt(a.StudyRegion, 10),
	}
	if !e.population {
		fields = append(fields, strconv.FormatInt(a.AdminLevelID, 10), a.Taxonomy)
	}
	return []byte(strings.Join(fields, ",") + "\n")
}

func (e csvEncoder) Footer() [][]byte { return nil }

type nrmlEncoder struct {
	population bool
}

func (e nrmlEncoder) Header() [][]byte {
	return [][]byte{
		[]byte(xmlDeclaration),
		[]byte(CopyrightNRML(CopyrightNotice)),
		[]byte(nrmlHeader),
	}
}

func (e nrmlEncoder) Record(a domain.Asset) []byte {
	taxonomy := a.Taxonomy
	if e.population {
		taxonomy = PopulationTaxonomy
	}
	tax := escapeXML(taxonomy)
	grid := strconv.FormatInt(a.GridID, 10)

	var b bytes.Buffer
	b.WriteString("\n                <assetDefinition gml:id=\"")
	b.WriteString(grid + "_" + tax)
	b.WriteString("\">\n                    <site>\n")
	b.WriteString("                        <gml:Point srsName=\"epsg:4326\">\n")
	b.WriteString("                            <gml:pos>" + domain.FormatFloat(a.Lon) + " " + domain.FormatFloat(a.Lat) + "</gml:pos>\n")
	b.WriteString("                        </gml:Point>\n                    </site>\n")
	b.WriteString("                    <number>" + domain.FormatFloat(a.Value) + "</number>\n")
	b.WriteString("                    <taxonomy>" + tax + "</taxonomy>\n")
	b.WriteString("                </assetDefinition>")
	return b.Bytes()
}

func (e nrmlEncoder) Footer() [][]byte { return [][]byte{[]byte(nrmlFooter)} }

func escapeXML(s string) string {
	var b strings.Builder
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}
