// Package template resolves the {{placeholder}} vocabulary of contract
// templates against the frozen business, client and quote snapshots.
package template

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/priceus/contracts-service/internal/model"
)

// NoProductsMarker is rendered in place of the itemized product list when
// the quote has no selected products, so the section is visibly empty
// instead of silently missing.
const NoProductsMarker = "Nenhum produto selecionado."

var placeholderRE = regexp.MustCompile(`\{\{\s*([a-z0-9_]+)\s*\}\}`)

// Resolve substitutes every recognized placeholder with snapshot data.
// It is pure: identical inputs always produce identical output. Tokens
// that are unrecognized, or recognized but unbound (no data yet, e.g.
// client fields before signing), are left verbatim in the output — never
// dropped, never an error — so missing data is visible instead of
// corrupting the prose with blanks.
func Resolve(text string, business model.BusinessSnapshot, client *model.ClientSnapshot, quote model.LeadSnapshot) string {
	values := bindings(business, client, quote)

	return placeholderRE.ReplaceAllStringFunc(text, func(match string) string {
		groups := placeholderRE.FindStringSubmatch(match)
		if len(groups) != 2 {
			return match
		}
		if value, ok := values[groups[1]]; ok && value != "" {
			return value
		}
		return match
	})
}

func bindings(business model.BusinessSnapshot, client *model.ClientSnapshot, quote model.LeadSnapshot) map[string]string {
	values := map[string]string{
		// business namespace
		"nome_empresa":     business.BusinessName,
		"cpf_cnpj":         business.TaxID(),
		"email_empresa":    business.Email,
		"telefone_empresa": business.Phone,
		"endereco_empresa": business.Address,
		"cidade_empresa":   business.City,
		"estado_empresa":   business.State,
		"cep_empresa":      business.ZipCode,
		"chave_pix":        business.PixKey,
		"banco":            business.BankName,
		"agencia":          business.BankAgency,
		"conta":            business.BankAccount,
		"tipo_conta":       business.BankAccountType,

		// quote namespace
		"tipo_evento":         quote.EventType,
		"data_evento":         FormatDate(quote.EventDate),
		"cidade_evento":       quote.EventCity,
		"lista_produtos":      productList(quote.Products),
		"subtotal":            FormatCurrency(quote.Subtotal),
		"desconto_cupom":      FormatCurrency(quote.CouponDiscount),
		"acrescimo_pagamento": FormatCurrency(quote.PaymentSurcharge),
		"valor_total":         FormatCurrency(quote.TotalValue),
		"forma_pagamento":     quote.PaymentMethodName,

		// client namespace; before signing these stay unbound and the
		// tokens survive verbatim
		"nome_cliente":     quote.ClientName,
		"email_cliente":    quote.Email,
		"telefone_cliente": quote.Phone,
	}

	if client != nil {
		bindNonEmpty(values, "nome_cliente", client.FullName)
		bindNonEmpty(values, "cpf_cliente", client.CPF)
		bindNonEmpty(values, "email_cliente", client.Email)
		bindNonEmpty(values, "telefone_cliente", client.Phone)
		bindNonEmpty(values, "endereco_cliente", client.Address)
	}

	return values
}

func bindNonEmpty(values map[string]string, key, value string) {
	if value != "" {
		values[key] = value
	}
}

func productList(products []model.SelectedProduct) string {
	if len(products) == 0 {
		return NoProductsMarker
	}
	lines := make([]string, 0, len(products))
	for _, p := range products {
		quantity := p.Quantity
		if quantity <= 0 {
			quantity = 1
		}
		lines = append(lines, fmt.Sprintf("- %s: %s x %d", p.Name, FormatCurrency(p.Price), quantity))
	}
	return strings.Join(lines, "\n")
}
