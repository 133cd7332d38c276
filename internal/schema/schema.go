package schema

import (
	"fmt"
	"strings"
)

// FileType identifies one of the registry file layouts published by the
// Receita Federal. The value doubles as the filename marker used to
// recognize the type.
type FileType string

const (
	FileTypeEmpresa         FileType = "EMPRECSV"
	FileTypeEstabelecimento FileType = "ESTABELE"
	FileTypeSocio           FileType = "SOCIOCSV"
	FileTypeSimples         FileType = "SIMPLESCSV"
	FileTypeCnae            FileType = "CNAECSV"
	FileTypeMotivo          FileType = "MOTICSV"
	FileTypeMunicipio       FileType = "MUNICCSV"
	FileTypeNatureza        FileType = "NATJUCSV"
	FileTypePais            FileType = "PAISCSV"
	FileTypeQualificacao    FileType = "QUALSCSV"
)

// TableSpec describes the fixed positional layout of one file type and how
// it maps onto its target table. The specs are static: a column referenced
// by a role set but missing from Columns is caught by Validate at startup,
// not silently defaulted at load time.
type TableSpec struct {
	FileType    FileType
	Table       string
	Columns     []string
	ConflictKey []string
	NumericCols []string
	DateCols    []string
	ListCols    []string
	// LoadRank orders files by dependency: rank 0 tables must be fully
	// loaded before any rank 1 file starts, because rank 1 tables carry a
	// foreign key to empresas.
	LoadRank int
}

var specs = map[FileType]TableSpec{
	FileTypeEmpresa: {
		FileType: FileTypeEmpresa,
		Table:    "empresas",
		Columns: []string{
			"cnpj_basico",
			"razao_social",
			"natureza_juridica",
			"qualificacao_responsavel",
			"capital_social",
			"porte",
			"ente_federativo_responsavel",
		},
		ConflictKey: []string{"cnpj_basico"},
		NumericCols: []string{"capital_social"},
	},
	FileTypeEstabelecimento: {
		FileType: FileTypeEstabelecimento,
		Table:    "estabelecimentos",
		Columns: []string{
			"cnpj_basico", "cnpj_ordem", "cnpj_dv", "identificador_matriz_filial",
			"nome_fantasia", "situacao_cadastral", "data_situacao_cadastral",
			"motivo_situacao_cadastral", "nome_cidade_exterior", "pais",
			"data_inicio_atividade", "cnae_fiscal_principal", "cnae_fiscal_secundaria",
			"tipo_logradouro", "logradouro", "numero", "complemento", "bairro",
			"cep", "uf", "municipio", "ddd_1", "telefone_1", "ddd_2", "telefone_2",
			"ddd_fax", "fax", "correio_eletronico", "situacao_especial",
			"data_situacao_especial",
		},
		ConflictKey: []string{"cnpj_basico", "cnpj_ordem", "cnpj_dv"},
		DateCols: []string{
			"data_situacao_cadastral",
			"data_inicio_atividade",
			"data_situacao_especial",
		},
		ListCols: []string{"cnae_fiscal_secundaria"},
		LoadRank: 1,
	},
	FileTypeSocio: {
		FileType: FileTypeSocio,
		Table:    "socios",
		Columns: []string{
			"cnpj_basico", "identificador_de_socio", "nome_socio",
			"cnpj_cpf_do_socio", "qualificacao_do_socio", "data_entrada_sociedade",
			"pais", "representante_legal", "nome_do_representante",
			"qualificacao_do_representante_legal", "faixa_etaria",
		},
		ConflictKey: []string{"cnpj_basico", "identificador_de_socio", "cnpj_cpf_do_socio"},
		DateCols:    []string{"data_entrada_sociedade"},
		LoadRank:    1,
	},
	FileTypeSimples: {
		FileType: FileTypeSimples,
		Table:    "dados_simples",
		Columns: []string{
			"cnpj_basico", "opcao_pelo_simples", "data_opcao_pelo_simples",
			"data_exclusao_do_simples", "opcao_pelo_mei", "data_opcao_pelo_mei",
			"data_exclusao_do_mei",
		},
		ConflictKey: []string{"cnpj_basico"},
		DateCols: []string{
			"data_opcao_pelo_simples",
			"data_exclusao_do_simples",
			"data_opcao_pelo_mei",
			"data_exclusao_do_mei",
		},
		LoadRank: 1,
	},
	FileTypeCnae:         referenceSpec(FileTypeCnae, "cnaes"),
	FileTypeMotivo:       referenceSpec(FileTypeMotivo, "motivos"),
	FileTypeMunicipio:    referenceSpec(FileTypeMunicipio, "municipios"),
	FileTypeNatureza:     referenceSpec(FileTypeNatureza, "naturezas_juridicas"),
	FileTypePais:         referenceSpec(FileTypePais, "paises"),
	FileTypeQualificacao: referenceSpec(FileTypeQualificacao, "qualificacoes_socios"),
}

// referenceSpec builds the spec shared by the six code/description tables.
func referenceSpec(ft FileType, table string) TableSpec {
	return TableSpec{
		FileType:    ft,
		Table:       table,
		Columns:     []string{"codigo", "descricao"},
		ConflictKey: []string{"codigo"},
	}
}

// detectionOrder keeps type detection deterministic. SIMPLESCSV must be
// checked before markers that could otherwise shadow it in a map iteration.
var detectionOrder = []FileType{
	FileTypeEmpresa,
	FileTypeEstabelecimento,
	FileTypeSocio,
	FileTypeSimples,
	FileTypeCnae,
	FileTypeMotivo,
	FileTypeMunicipio,
	FileTypeNatureza,
	FileTypePais,
	FileTypeQualificacao,
}

// SpecFor returns the table spec for a file type.
func SpecFor(ft FileType) (TableSpec, bool) {
	spec, ok := specs[ft]
	return spec, ok
}

// AllSpecs returns every table spec in a stable order, with empresas first
// so DDL that references it can be applied in sequence.
func AllSpecs() []TableSpec {
	out := make([]TableSpec, 0, len(specs))
	for _, ft := range detectionOrder {
		out = append(out, specs[ft])
	}
	return out
}

// DetectFileType infers the file type from a filename by case-insensitive
// marker match, e.g. "K3241.K03200Y0.D50510.EMPRECSV" -> FileTypeEmpresa.
func DetectFileType(filename string) (FileType, bool) {
	upper := strings.ToUpper(filename)
	for _, ft := range detectionOrder {
		if strings.Contains(upper, string(ft)) {
			return ft, true
		}
	}
	return "", false
}

// Validate checks the static specs for internal consistency: every column
// named by a role set or the conflict key must exist in the positional
// layout. Called once at startup so a bad mapping fails the run before any
// file is touched.
func Validate() error {
	for ft, spec := range specs {
		declared := make(map[string]bool, len(spec.Columns))
		for _, col := range spec.Columns {
			if declared[col] {
				return fmt.Errorf("spec %s: duplicate column %q", ft, col)
			}
			declared[col] = true
		}
		if len(spec.ConflictKey) == 0 {
			return fmt.Errorf("spec %s: empty conflict key", ft)
		}
		for _, group := range [][]string{spec.ConflictKey, spec.NumericCols, spec.DateCols, spec.ListCols} {
			for _, col := range group {
				if !declared[col] {
					return fmt.Errorf("spec %s: column %q not in layout", ft, col)
				}
			}
		}
	}
	return nil
}
