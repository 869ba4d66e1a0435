package discovery

// defaultModels is the fallback catalog used when ir.model is not readable.
var defaultModels = []ModelInfo{
	{Model: "sale.order", Name: "Sales Order", Description: "Customer quotations and sales orders"},
	{Model: "sale.order.line", Name: "Sales Order Line"},
	{Model: "purchase.order", Name: "Purchase Order", Description: "Requests for quotation and purchase orders"},
	{Model: "purchase.order.line", Name: "Purchase Order Line"},
	{Model: "res.partner", Name: "Contact", Description: "Customers, vendors, and other contacts"},
	{Model: "product.product", Name: "Product Variant"},
	{Model: "product.template", Name: "Product"},
	{Model: "account.move", Name: "Journal Entry", Description: "Invoices, bills, and journal entries"},
	{Model: "account.move.line", Name: "Journal Item"},
	{Model: "stock.picking", Name: "Transfer", Description: "Incoming and outgoing stock transfers"},
	{Model: "stock.move", Name: "Stock Move"},
	{Model: "crm.lead", Name: "Lead/Opportunity"},
	{Model: "project.project", Name: "Project"},
	{Model: "project.task", Name: "Task"},
	{Model: "hr.employee", Name: "Employee"},
}

func defaultCatalog() map[string]ModelInfo {
	catalog := make(map[string]ModelInfo, len(defaultModels))
	for _, info := range defaultModels {
		catalog[info.Model] = info
	}
	return catalog
}

// modelSafeFields lists, per common model, the standard fields that exist
// in most installations and do not touch restricted related models.
var modelSafeFields = map[string][]string{
	"sale.order": {
		"id", "name", "display_name", "state", "date_order",
		"amount_total", "amount_untaxed", "amount_tax",
		"partner_id", "user_id", "company_id", "currency_id",
		"note", "reference", "origin", "client_order_ref",
	},
	"purchase.order": {
		"id", "name", "display_name", "state", "date_order", "date_approve",
		"amount_total", "amount_untaxed", "amount_tax",
		"partner_id", "user_id", "company_id", "currency_id",
		"notes", "origin", "partner_ref",
	},
	"res.partner": {
		"id", "name", "display_name", "email", "phone", "mobile",
		"street", "street2", "city", "zip", "country_id", "state_id",
		"vat", "website", "is_company", "company_type", "active",
		"commercial_company_name", "ref",
	},
	"product.product": {
		"id", "name", "display_name", "default_code", "barcode",
		"list_price", "standard_price", "type", "categ_id",
		"active", "description", "description_sale",
	},
	"product.template": {
		"id", "name", "display_name", "default_code", "barcode",
		"list_price", "standard_price", "type", "categ_id",
		"active", "description", "description_sale",
	},
	"account.move": {
		"id", "name", "display_name", "state", "move_type",
		"date", "invoice_date", "invoice_date_due",
		"amount_total", "amount_untaxed", "amount_tax", "amount_residual",
		"partner_id", "company_id", "currency_id", "journal_id",
		"ref", "narration", "payment_state",
	},
	"stock.picking": {
		"id", "name", "display_name", "state", "origin",
		"scheduled_date", "date_done", "picking_type_id",
		"partner_id", "company_id", "location_id", "location_dest_id",
		"note",
	},
	"hr.employee": {
		"id", "name", "display_name", "job_id", "department_id",
		"work_email", "work_phone", "mobile_phone",
		"company_id", "active",
	},
	"crm.lead": {
		"id", "name", "display_name", "type", "stage_id",
		"partner_id", "user_id", "company_id",
		"email_from", "phone", "expected_revenue",
		"probability", "date_deadline", "description", "active",
	},
	"project.task": {
		"id", "name", "display_name", "state", "stage_id",
		"project_id", "user_ids", "partner_id", "company_id",
		"date_deadline", "description", "priority", "active",
	},
	"project.project": {
		"id", "name", "display_name", "active", "stage_id",
		"partner_id", "user_id", "company_id",
		"date_start", "date", "description",
	},
}

// defaultSafeFields is the conservative read set for unknown models.
var defaultSafeFields = []string{
	"id", "name", "display_name", "create_date", "write_date", "active",
}

// commonMethods exist on practically every model.
var commonMethods = []string{
	"create", "write", "read", "unlink",
	"search", "search_read", "name_search", "fields_get", "default_get",
}

// modelMethods are well-known workflow methods per model.
var modelMethods = map[string][]string{
	"purchase.order": {
		"button_approve", "button_cancel", "action_rfq_send",
		"action_create_invoice", "print_quotation",
	},
	"sale.order": {
		"action_confirm", "action_cancel", "action_draft", "print_quotation",
	},
	"account.move": {
		"button_post", "button_cancel", "action_draft",
	},
	"stock.picking": {
		"button_validate", "action_cancel", "do_unreserve", "force_assign",
	},
}
