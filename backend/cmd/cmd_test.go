package cmd

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/AnTengye/contractvigency/backend/config"
	"github.com/AnTengye/contractvigency/backend/model"
	"github.com/AnTengye/contractvigency/backend/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fixtureCSV = "data_de_assinatura,data_de_atualizacao,inicio_vigencia," +
	"data_de_publicacao_do_extrato_no_dou,fim_vigencia_atualizado,fim_vigencia_original," +
	"contratado,valor_global_acumulado,ano,objeto\n" +
	",,,,,2025-03-20,1 - ACME,1234567.8,2024,Limpeza\n" +
	",,,,2025-12-31,2025-01-01,2 - BETA,2500,2024,Vigilância\n" +
	",,,,,01/01/2025,3 - GAMA,300,2023,Manutenção\n" +
	",,,,,,SEM SEPARADOR,,2023,Consultoria\n"

func writeFixture(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "contratos.csv")
	require.NoError(t, os.WriteFile(path, []byte(fixtureCSV), 0o644))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestReportJSON(t *testing.T) {
	out, err := execute(t, "report", "--file", writeFixture(t), "--today", "2025-03-10", "--json")
	require.NoError(t, err)

	var got reportOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))

	assert.Equal(t, model.NewDate(2025, time.March, 10), got.Today)
	assert.Equal(t, "contratos.csv", got.Filename)
	assert.Equal(t, 1, got.Quality.MissingSupplier)
	assert.Equal(t, 4, got.Dashboard.Total)
	assert.Equal(t, 2024, got.Dashboard.SelectedYear)

	require.Len(t, got.Dashboard.ExpiringSoon, 1)
	assert.Equal(t, "R$ 1.234.567,80", got.Dashboard.ExpiringSoon[0].Value)
	assert.Equal(t, 10, got.Dashboard.ExpiringSoon[0].DaysToExpire)

	require.Len(t, got.Dashboard.TopSuppliersByCount, 1)
	assert.Equal(t, "BETA", got.Dashboard.TopSuppliersByCount[0].Supplier)
}

func TestReportText(t *testing.T) {
	out, err := execute(t, "report", "-f", writeFixture(t), "--today", "2025-03-10", "--year", "2023")
	require.NoError(t, err)

	assert.Contains(t, out, "contratos.csv: 4 contracts, reference date 2025-03-10")
	assert.Contains(t, out, "warning: 1 supplier cells without name")
	assert.Contains(t, out, "Expiring within 30 days")
	assert.Contains(t, out, "Accumulated value by status, 2023")
	assert.Contains(t, out, "R$ 1.234.567,80")
	assert.Contains(t, out, "Vencido")
}

func TestReportFlagErrors(t *testing.T) {
	path := writeFixture(t)

	_, err := execute(t, "report", "--file", path, "--url", "http://example.com/x.xlsx")
	assert.Error(t, err, "file and url are exclusive")

	_, err = execute(t, "report", "--file", path, "--today", "10/03/2025")
	assert.ErrorContains(t, err, "invalid --today")

	_, err = execute(t, "report", "--file", filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)

	_, err = execute(t, "report", "--config", filepath.Join(t.TempDir(), "missing.yaml"), "--file", path)
	assert.ErrorContains(t, err, "failed to load config")
}

func TestReferenceTime(t *testing.T) {
	loc, err := time.LoadLocation("America/Sao_Paulo")
	require.NoError(t, err)

	got, err := referenceTime("2025-03-10", loc)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, time.March, 10, 12, 0, 0, 0, loc), got)

	before := time.Now()
	got, err = referenceTime("", loc)
	require.NoError(t, err)
	assert.False(t, got.Before(before))
}

func TestNewRouterRoutes(t *testing.T) {
	cfg := config.Default()
	cfg.Auth.JWTSecret = "secret"
	vigency := service.NewVigencyService(service.NewDatasetStore(1), nil, nil, cfg)

	router := newRouter(cfg, vigency)

	want := []string{
		"GET /health",
		"GET /metrics",
		"POST /api/auth/login",
		"GET /api/auth/me",
		"POST /api/datasets/upload",
		"POST /api/datasets/import",
		"GET /api/datasets",
		"GET /api/datasets/:id",
		"DELETE /api/datasets/:id",
		"POST /api/datasets/:id/reload",
		"GET /api/datasets/:id/contracts",
		"GET /api/datasets/:id/dashboard",
		"GET /api/datasets/:id/expiring",
		"GET /api/datasets/:id/distribution",
		"GET /api/datasets/:id/value-by-status",
		"GET /api/datasets/:id/top-suppliers",
	}
	var got []string
	for _, r := range router.Routes() {
		got = append(got, r.Method+" "+r.Path)
	}
	assert.ElementsMatch(t, want, got)

	for _, r := range router.Routes() {
		assert.False(t, strings.Contains(r.Path, "//"), r.Path)
	}
}
