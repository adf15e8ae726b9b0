package backend

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/LeonardoBeccarini/pivot_orders/internal/model/entities"
)

var ErrInvalidRow = errors.New("invalid order row")

// Row is one record of the "ordens_servico" table as the hosted backend returns it.
// Only the columns the tracker reads are mapped.
type Row struct {
	ID                string            `json:"id" yaml:"id"`
	NumeroOS          string            `json:"numero_os" yaml:"numero_os"`
	PivoID            string            `json:"pivo_id" yaml:"pivo_id"`
	OperadorNome      string            `json:"operador_nome" yaml:"operador_nome"`
	Status            string            `json:"status" yaml:"status"`
	Parcela           string            `json:"parcela" yaml:"parcela"`
	PosicaoAtual      *float64          `json:"posicao_atual" yaml:"posicao_atual"`
	ProgressoParcela  string            `json:"progresso_parcela" yaml:"progresso_parcela"`
	DataEfetivaInicio *string           `json:"data_efetiva_inicio" yaml:"data_efetiva_inicio"`
	DataConclusao     *string           `json:"data_conclusao" yaml:"data_conclusao"`
	Interrupcoes      []InterruptionRow `json:"historico_interrupcoes" yaml:"historico_interrupcoes"`
}

// InterruptionRow is one element of the "historico_interrupcoes" JSON column.
type InterruptionRow struct {
	DataInterrupcao string  `json:"data_interrupcao" yaml:"data_interrupcao"`
	DataRetomada    *string `json:"data_retomada" yaml:"data_retomada"`
	Motivo          string  `json:"motivo" yaml:"motivo"`
	Detalhe         string  `json:"detalhe" yaml:"detalhe"`
	RetomadoPor     string  `json:"retomado_por" yaml:"retomado_por"`
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999-07",
	"2006-01-02 15:04:05.999999999",
}

func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, l := range timeLayouts {
		if t, err := time.Parse(l, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

func parseOptTime(s *string) (*time.Time, error) {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil, nil
	}
	t, err := parseTime(*s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// ToOrder normalizes the localized strings of a row into the closed enums
// used by the metrics code. Unknown status or zone values and unparseable
// timestamps are errors; integrity problems are left to ServiceOrder.Validate.
func (r Row) ToOrder() (entities.ServiceOrder, error) {
	status, ok := entities.ParseStatus(r.Status)
	if !ok {
		return entities.ServiceOrder{}, fmt.Errorf("%w %s: status %q", ErrInvalidRow, r.ID, r.Status)
	}
	zone, ok := entities.ParseZone(r.Parcela)
	if !ok {
		return entities.ServiceOrder{}, fmt.Errorf("%w %s: parcela %q", ErrInvalidRow, r.ID, r.Parcela)
	}
	start, err := parseOptTime(r.DataEfetivaInicio)
	if err != nil {
		return entities.ServiceOrder{}, fmt.Errorf("%w %s: data_efetiva_inicio: %v", ErrInvalidRow, r.ID, err)
	}
	done, err := parseOptTime(r.DataConclusao)
	if err != nil {
		return entities.ServiceOrder{}, fmt.Errorf("%w %s: data_conclusao: %v", ErrInvalidRow, r.ID, err)
	}

	o := entities.ServiceOrder{
		ID:              r.ID,
		Number:          r.NumeroOS,
		PivotID:         r.PivoID,
		Operator:        r.OperadorNome,
		Status:          status,
		ActualStartTime: start,
		CompletionTime:  done,
		Zone:            zone,
	}
	if r.PosicaoAtual != nil {
		o.CurrentAngle = entities.NormalizeAngle(int(math.Round(*r.PosicaoAtual)))
	}
	if st, ok := entities.ParseStage(r.ProgressoParcela); ok {
		o.Stage = st
	}

	for i, ir := range r.Interrupcoes {
		stopped, err := parseTime(ir.DataInterrupcao)
		if err != nil {
			return entities.ServiceOrder{}, fmt.Errorf("%w %s: interruption %d: %v", ErrInvalidRow, r.ID, i, err)
		}
		resumed, err := parseOptTime(ir.DataRetomada)
		if err != nil {
			return entities.ServiceOrder{}, fmt.Errorf("%w %s: interruption %d: %v", ErrInvalidRow, r.ID, i, err)
		}
		reason := ir.Motivo
		if canonical, ok := entities.ParseReason(reason); ok {
			reason = canonical
		}
		o.Interruptions = append(o.Interruptions, entities.InterruptionRecord{
			StoppedAt: stopped,
			ResumedAt: resumed,
			Reason:    reason,
			Detail:    ir.Detalhe,
			ResumedBy: ir.RetomadoPor,
		})
	}
	return o, nil
}
