// Package ledger normalizes stored trade and dividend records into canonical events.
//
// Records arrive with whatever field names and vocabulary the user (or the
// spreadsheet they imported) happened to use. This package is the only place
// that knows about those aliases; everything downstream sees domain types.
package ledger

import (
	"strings"

	"github.com/samber/lo"
)

// RawRecord is a stored record before normalization.
// Seq is the store's insertion sequence and orders records that share a date.
type RawRecord struct {
	ID     string         `json:"id"`
	Seq    int64          `json:"seq"`
	Fields map[string]any `json:"fields"`
}

// Field aliases, matched after canonicalKey.
var (
	tickerAliases    = aliases("ticker", "symbol", "ativo", "codigo", "código", "papel", "acao", "ação", "asset", "codigo_negociacao")
	sideAliases      = aliases("side", "type", "tipo", "operacao", "operação", "operation", "action", "natureza", "compra_venda", "c/v")
	quantityAliases  = aliases("quantity", "qty", "quantidade", "qtd", "qtde", "shares", "cotas")
	priceAliases     = aliases("unitPrice", "unit_price", "price", "preco", "preço", "precoUnitario", "preço_unitário", "valorUnitario", "valor_unitario", "precoMedio")
	feesAliases      = aliases("fees", "fee", "taxas", "custos", "corretagem", "commission", "emolumentos")
	tradeDateAliases = aliases("occurredAt", "date", "data", "dataOperacao", "data_operacao", "tradeDate", "dataNegocio", "data_negocio", "data_do_negocio")

	amountAliases   = aliases("amount", "valor", "value", "total", "valorLiquido", "valor_liquido", "liquido", "líquido")
	paidOnAliases   = aliases("paidOn", "paid_on", "paymentDate", "dataPagamento", "data_pagamento", "pagamento", "date", "data")
	categoryAliases = aliases("category", "categoria", "type", "tipo", "provento", "evento", "tipo_provento")
)

var buySynonyms = aliases("buy", "b", "c", "compra", "comprar", "purchase", "bought", "aquisicao", "aquisição", "credito")
var sellSynonyms = aliases("sell", "s", "v", "venda", "vender", "sold", "alienacao", "alienação", "debito")

var accentReplacer = strings.NewReplacer(
	"á", "a", "à", "a", "â", "a", "ã", "a", "ä", "a",
	"é", "e", "ê", "e", "è", "e",
	"í", "i", "î", "i",
	"ó", "o", "ô", "o", "õ", "o", "ö", "o",
	"ú", "u", "ü", "u",
	"ç", "c",
)

var separatorReplacer = strings.NewReplacer("_", "", "-", "", " ", "", "/", "", ".", "")

// canonicalKey folds case, accents and separators so "Data_Operação" == "dataoperacao".
func canonicalKey(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = accentReplacer.Replace(s)
	return separatorReplacer.Replace(s)
}

func aliases(names ...string) []string {
	return lo.Uniq(lo.Map(names, func(n string, _ int) string { return canonicalKey(n) }))
}

// fieldSet is a record's fields indexed by canonical key.
type fieldSet map[string]any

func newFieldSet(fields map[string]any) fieldSet {
	fs := make(fieldSet, len(fields))
	for k, v := range fields {
		fs[canonicalKey(k)] = v
	}
	return fs
}

// lookup returns the first non-empty value among the aliases.
func (fs fieldSet) lookup(names []string) (any, bool) {
	for _, n := range names {
		v, ok := fs[n]
		if !ok || v == nil {
			continue
		}
		if s, isStr := v.(string); isStr && strings.TrimSpace(s) == "" {
			continue
		}
		return v, true
	}
	return nil, false
}

// IsDateField reports whether a column header names a trade or payment date.
func IsDateField(header string) bool {
	key := canonicalKey(header)
	return lo.Contains(tradeDateAliases, key) || lo.Contains(paidOnAliases, key)
}
