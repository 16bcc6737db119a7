package partner

import (
	_ "embed"
	"os"
	"sort"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/tajer-app/locations/internal/domain"
)

//go:embed partners.yaml
var defaultCatalog []byte

// Spec describes how to reach one partner's location endpoints through the
// proxy.
type Spec struct {
	Name            domain.Partner `yaml:"name"`
	Title           string         `yaml:"title"`
	Method          string         `yaml:"method"`
	CitiesEndpoint  string         `yaml:"cities_endpoint"`
	RegionsEndpoint string         `yaml:"regions_endpoint"`
	RegionCityParam string         `yaml:"region_city_param"`
	NameKeys        []string       `yaml:"name_keys"`
}

type Catalog struct {
	partners map[domain.Partner]Spec
}

type catalogFile struct {
	Partners []Spec `yaml:"partners"`
}

// LoadCatalog reads the partner catalog from path, or the embedded default
// when path is empty.
func LoadCatalog(path string) (*Catalog, error) {
	data := defaultCatalog
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "read partner catalog %s", path)
		}
	}
	return ParseCatalog(data)
}

func ParseCatalog(data []byte) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, errors.Wrap(err, "parse partner catalog")
	}

	catalog := &Catalog{partners: make(map[domain.Partner]Spec, len(file.Partners))}
	for _, spec := range file.Partners {
		spec.Name = spec.Name.Normalize()
		if spec.Name == "" || spec.CitiesEndpoint == "" || spec.RegionsEndpoint == "" {
			return nil, errors.Errorf("partner catalog entry %q is incomplete", spec.Name)
		}
		if spec.Method == "" {
			spec.Method = "GET"
		}
		if spec.RegionCityParam == "" {
			spec.RegionCityParam = "city_id"
		}
		catalog.partners[spec.Name] = spec
	}

	if len(catalog.partners) == 0 {
		return nil, errors.New("partner catalog is empty")
	}

	return catalog, nil
}

func (c *Catalog) Lookup(partner domain.Partner) (Spec, error) {
	spec, ok := c.partners[partner.Normalize()]
	if !ok {
		return Spec{}, errors.Wrap(domain.ErrUnknownPartner, partner.String())
	}
	return spec, nil
}

func (c *Catalog) Supports(partner domain.Partner) bool {
	_, ok := c.partners[partner.Normalize()]
	return ok
}

func (c *Catalog) Partners() []domain.Partner {
	out := make([]domain.Partner, 0, len(c.partners))
	for name := range c.partners {
		out = append(out, name)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
