// internal/domain/property.go
package domain

import "time"

type Modality string

const (
	ModalityLeilao      Modality = "Leilão"
	ModalityVendaDireta Modality = "Venda Direta"
	ModalityUnknown     Modality = ""
)

type PropertyType string

const (
	TypeCasa        PropertyType = "Casa"
	TypeApartamento PropertyType = "Apartamento"
	TypeUnknown     PropertyType = ""
)

// Property é a unidade de saída do scraper. Os valores monetários e de área
// ficam como texto cru porque a formatação do portal é inconsistente.
type Property struct {
	Code         string       `json:"codigo" bson:"codigo"`
	Title        string       `json:"titulo" bson:"titulo"`
	Address      string       `json:"endereco" bson:"endereco"`
	Neighborhood string       `json:"bairro" bson:"bairro"`
	Modality     Modality     `json:"modalidade" bson:"modalidade"`
	Value        string       `json:"valor" bson:"valor"`
	Area         string       `json:"area" bson:"area"`
	Rooms        string       `json:"quartos" bson:"quartos"`
	Type         PropertyType `json:"tipo_imovel" bson:"tipo_imovel"`
	ItemNumber   string       `json:"numero_item" bson:"numero_item"`
	RawData      string       `json:"raw_data,omitempty" bson:"raw_data,omitempty"`
}

// Valid informa se o registro tem o mínimo para ser aproveitado.
func (p Property) Valid() bool {
	return p.Title != ""
}

// SearchRequest é a entrada imutável da busca. A cidade é texto livre e só é
// normalizada na resolução.
type SearchRequest struct {
	Estado string `json:"estado" bson:"estado"`
	Cidade string `json:"cidade" bson:"cidade"`
}

// PageManifest é a paginação decodificada da resposta inicial da busca.
// PageIDs pode ter lacunas: página ausente é tratada como vazia, não como erro.
type PageManifest struct {
	TotalPages   int
	TotalRecords int
	PageIDs      map[int][]string
}

// IDsForPage devolve o lote de identificadores da página, se houver.
func (m *PageManifest) IDsForPage(page int) ([]string, bool) {
	ids, ok := m.PageIDs[page]
	return ids, ok && len(ids) > 0
}

// ResultSet é o contrato entregue ao exportador e aos repositórios.
type ResultSet struct {
	Timestamp     time.Time     `json:"timestamp" bson:"timestamp"`
	Search        SearchRequest `json:"search_parameters" bson:"search_parameters"`
	TotalExpected int           `json:"total_expected" bson:"total_expected"`
	SkippedItems  int           `json:"skipped_items" bson:"skipped_items"`
	Properties    []Property    `json:"properties" bson:"properties"`
}

// Complete diz se o resultado cobre a contagem anunciada pelo portal, para o
// chamador distinguir resultado parcial de completo.
func (r *ResultSet) Complete() bool {
	return len(r.Properties) >= r.TotalExpected
}
