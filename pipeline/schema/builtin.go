package schema

import (
	"github.com/gear6io/wwi-etl/pipeline/rules"
)

const (
	reasonActiveRecord = "Currently active records (SCD pattern)"
	lastEdited         = "last_edited_when"
	lastEditedParsed   = "last_edited_when_parsed"
	validFrom          = "valid_from"
	validFromParsed    = "valid_from_parsed"
)

// renames derives snake_case targets for sources, with explicit overrides
// for names that do not follow the convention.
func renames(overrides map[string]string, sources ...string) []ColumnRename {
	out := make([]ColumnRename, 0, len(sources))
	for _, src := range sources {
		to, ok := overrides[src]
		if !ok {
			to = ToSnake(src)
		}
		out = append(out, ColumnRename{From: src, To: to})
	}
	return out
}

// bespoke makes every column whose values are audited, plus the key, a
// required source column.
func bespoke(s TableSpec) TableSpec {
	seen := make(map[string]struct{})
	add := func(target string) {
		src := s.SourceOf(target)
		if _, ok := seen[src]; ok {
			return
		}
		seen[src] = struct{}{}
		s.Required = append(s.Required, src)
	}
	if s.PrimaryKey != "" {
		add(s.PrimaryKey)
	}
	for _, c := range s.RequiredValues {
		add(c)
	}
	return s
}

var personOverrides = map[string]string{
	"SalespersonPersonID":         "salesperson_id",
	"PickedByPersonID":            "picked_by_id",
	"PackedByPersonID":            "packed_by_id",
	"CustomerPurchaseOrderNumber": "customer_po_number",
}

func builtinSales() []TableSpec {
	return []TableSpec{
		bespoke(TableSpec{
			Name:   "orders",
			Domain: DomainSales,
			Source: "sales.order",
			Target: "orders.parquet",
			Columns: renames(personOverrides,
				"OrderID", "CustomerID", "SalespersonPersonID", "PickedByPersonID",
				"ContactPersonID", "BackorderOrderID", "OrderDate", "ExpectedDeliveryDate",
				"CustomerPurchaseOrderNumber", "IsUndersupplyBackordered", "PickingCompletedWhen",
				"LastEditedBy", "LastEditedWhen", "LastEditedWhen_parsed"),
			Temporal:    []string{"order_date", "expected_delivery_date", "picking_completed_when", lastEdited},
			IDColumns:   []string{"picked_by_id", "backorder_order_id"},
			TextColumns: []string{"customer_po_number"},
			PrimaryKey:  "order_id",
			ExpectedNulls: map[string]string{
				"picked_by_id":           "Order not yet picked",
				"backorder_order_id":     "No backorder exists",
				"picking_completed_when": "Order not yet completed",
			},
			RequiredValues: []string{"order_id", "customer_id", "order_date", "salesperson_id"},
			Rules:          []rules.Rule{rules.MergeParsed(lastEdited, lastEditedParsed)},
		}),
		bespoke(TableSpec{
			Name:   "order_lines",
			Domain: DomainSales,
			Source: "sales.orderline",
			Target: "order_lines.parquet",
			Columns: renames(nil,
				"OrderLineID", "OrderID", "StockItemID", "Description", "PackageTypeID",
				"Quantity", "UnitPrice", "TaxRate", "PickedQuantity", "PickingCompletedWhen",
				"LastEditedBy", "LastEditedWhen", "LastEditedWhen_parsed"),
			Temporal:    []string{"picking_completed_when", lastEdited},
			TextColumns: []string{"description"},
			PrimaryKey:  "order_line_id",
			ExpectedNulls: map[string]string{
				"picking_completed_when": "Order line not yet picked",
			},
			RequiredValues: []string{"order_line_id", "order_id", "stock_item_id", "quantity", "unit_price"},
			Rules:          []rules.Rule{rules.MergeParsed(lastEdited, lastEditedParsed)},
		}),
		bespoke(TableSpec{
			Name:   "customers",
			Domain: DomainSales,
			Source: "sales.customer",
			Target: "customers.parquet",
			Columns: renames(nil,
				"CustomerID", "CustomerName", "BillToCustomerID", "CustomerCategoryID",
				"BuyingGroupID", "PrimaryContactPersonID", "AlternateContactPersonID",
				"DeliveryMethodID", "DeliveryCityID", "PostalCityID", "CreditLimit",
				"AccountOpenedDate", "StandardDiscountPercentage", "IsStatementSent",
				"IsOnCreditHold", "PaymentDays", "PhoneNumber", "FaxNumber", "WebsiteURL",
				"DeliveryAddressLine1", "DeliveryAddressLine2", "DeliveryPostalCode",
				"DeliveryLocation", "PostalAddressLine1", "PostalAddressLine2",
				"PostalPostalCode", "LastEditedBy", "ValidFrom", "ValidTo", "ValidFrom_parsed"),
			Temporal:  []string{"account_opened_date", validFrom, "valid_to"},
			IDColumns: []string{"buying_group_id", "alternate_contact_person_id"},
			TextColumns: []string{
				"customer_name", "phone_number", "fax_number", "website_url",
				"delivery_address_line1", "delivery_address_line2", "delivery_postal_code",
				"delivery_location", "postal_address_line1", "postal_address_line2", "postal_postal_code",
			},
			PrimaryKey: "customer_id",
			ExpectedNulls: map[string]string{
				"buying_group_id":             "Customer not part of a buying group",
				"alternate_contact_person_id": "No alternate contact assigned",
				"credit_limit":                "Customer has no credit limit set",
			},
			RequiredValues: []string{"customer_id", "customer_name", "customer_category_id", "delivery_method_id", "account_opened_date"},
			Rules:          []rules.Rule{rules.MergeParsed(validFrom, validFromParsed)},
		}),
		bespoke(TableSpec{
			Name:   "invoices",
			Domain: DomainSales,
			Source: "sales.invoices",
			Target: "invoices.parquet",
			Columns: renames(personOverrides,
				"InvoiceID", "CustomerID", "BillToCustomerID", "OrderID", "DeliveryMethodID",
				"ContactPersonID", "AccountsPersonID", "SalespersonPersonID", "PackedByPersonID",
				"InvoiceDate", "CustomerPurchaseOrderNumber", "IsCreditNote", "DeliveryInstructions",
				"TotalDryItems", "TotalChillerItems", "ReturnedDeliveryData", "ConfirmedDeliveryTime",
				"ConfirmedReceivedBy", "LastEditedBy", "LastEditedWhen", "LastEditedWhen_parsed"),
			Temporal:       []string{"invoice_date", "confirmed_delivery_time", lastEdited},
			TextColumns:    []string{"customer_po_number", "delivery_instructions", "returned_delivery_data", "confirmed_received_by"},
			PrimaryKey:     "invoice_id",
			RequiredValues: []string{"invoice_id", "customer_id", "order_id", "invoice_date", "salesperson_id"},
			Rules:          []rules.Rule{rules.MergeParsed(lastEdited, lastEditedParsed)},
		}),
		bespoke(TableSpec{
			Name:   "invoice_lines",
			Domain: DomainSales,
			Source: "sales.incvoiceslines",
			Target: "invoice_lines.parquet",
			Columns: renames(nil,
				"InvoiceLineID", "InvoiceID", "StockItemID", "Description", "PackageTypeID",
				"Quantity", "UnitPrice", "TaxRate", "TaxAmount", "LineProfit", "ExtendedPrice",
				"LastEditedBy", "LastEditedWhen", "LastEditedWhen_parsed"),
			Temporal:       []string{lastEdited},
			TextColumns:    []string{"description"},
			PrimaryKey:     "invoice_line_id",
			RequiredValues: []string{"invoice_line_id", "invoice_id", "stock_item_id", "quantity", "unit_price", "extended_price"},
			Rules:          []rules.Rule{rules.MergeParsed(lastEdited, lastEditedParsed)},
		}),
	}
}

func builtinPurchasing() []TableSpec {
	return []TableSpec{
		bespoke(TableSpec{
			Name:   "purchase_orders",
			Domain: DomainPurchasing,
			Source: "purchase.order",
			Target: "purchase_orders.parquet",
			Columns: renames(nil,
				"PurchaseOrderID", "SupplierID", "OrderDate", "DeliveryMethodID", "ContactPersonID",
				"ExpectedDeliveryDate", "SupplierReference", "IsOrderFinalized",
				"LastEditedBy", "LastEditedWhen", "LastEditedWhen_parsed"),
			Temporal:       []string{"order_date", "expected_delivery_date", lastEdited},
			TextColumns:    []string{"supplier_reference"},
			PrimaryKey:     "purchase_order_id",
			RequiredValues: []string{"purchase_order_id", "supplier_id", "order_date", "delivery_method_id"},
			Rules:          []rules.Rule{rules.MergeParsed(lastEdited, lastEditedParsed)},
		}),
		bespoke(TableSpec{
			Name:   "purchase_order_lines",
			Domain: DomainPurchasing,
			Source: "purchase.orderline",
			Target: "purchase_order_lines.parquet",
			Columns: renames(nil,
				"PurchaseOrderLineID", "PurchaseOrderID", "StockItemID", "OrderedOuters",
				"Description", "ReceivedOuters", "PackageTypeID", "ExpectedUnitPricePerOuter",
				"LastReceiptDate", "IsOrderLineFinalized", "LastEditedBy", "LastEditedWhen",
				"LastEditedWhen_parsed"),
			Temporal:       []string{"last_receipt_date", lastEdited},
			TextColumns:    []string{"description"},
			PrimaryKey:     "purchase_order_line_id",
			RequiredValues: []string{"purchase_order_line_id", "purchase_order_id", "stock_item_id", "ordered_outers", "expected_unit_price_per_outer"},
			Rules:          []rules.Rule{rules.MergeParsed(lastEdited, lastEditedParsed)},
		}),
		bespoke(TableSpec{
			Name:   "suppliers",
			Domain: DomainPurchasing,
			Source: "purchasing.suppliers",
			Target: "suppliers.parquet",
			Columns: renames(nil,
				"SupplierID", "SupplierName", "SupplierCategoryID", "PrimaryContactPersonID",
				"AlternateContactPersonID", "DeliveryMethodID", "DeliveryCityID", "PostalCityID",
				"SupplierReference", "BankAccountName", "BankAccountBranch", "BankAccountCode",
				"BankAccountNumber", "BankInternationalCode", "PaymentDays", "InternalComments",
				"PhoneNumber", "FaxNumber", "WebsiteURL", "DeliveryAddressLine1",
				"DeliveryAddressLine2", "DeliveryPostalCode", "DeliveryLocation",
				"PostalAddressLine1", "PostalAddressLine2", "PostalPostalCode",
				"LastEditedBy", "ValidFrom", "ValidTo"),
			Temporal:  []string{validFrom, "valid_to"},
			IDColumns: []string{"delivery_method_id"},
			TextColumns: []string{
				"supplier_name", "supplier_reference", "bank_account_name", "bank_account_branch",
				"bank_account_code", "bank_account_number", "bank_international_code",
				"internal_comments", "phone_number", "fax_number", "website_url",
				"delivery_address_line1", "delivery_address_line2", "delivery_postal_code",
				"delivery_location", "postal_address_line1", "postal_address_line2", "postal_postal_code",
			},
			PrimaryKey: "supplier_id",
			ExpectedNulls: map[string]string{
				"delivery_method_id":     "Delivery method not always assigned",
				"delivery_address_line1": "Some suppliers have no delivery address",
				"internal_comments":      "Comments optional",
			},
			RequiredValues: []string{"supplier_id", "supplier_name", "supplier_category_id"},
		}),
		bespoke(TableSpec{
			Name:   "supplier_transactions",
			Domain: DomainPurchasing,
			Source: "purchasing.supplierstransactions",
			Target: "supplier_transactions.parquet",
			Columns: renames(nil,
				"SupplierTransactionID", "SupplierID", "TransactionTypeID", "PurchaseOrderID",
				"PaymentMethodID", "SupplierInvoiceNumber", "TransactionDate", "AmountExcludingTax",
				"TaxAmount", "TransactionAmount", "OutstandingBalance", "FinalizationDate",
				"IsFinalized", "LastEditedBy", "LastEditedWhen"),
			Temporal:   []string{"transaction_date", "finalization_date", lastEdited},
			IDColumns:  []string{"purchase_order_id", "supplier_invoice_number"},
			PrimaryKey: "supplier_transaction_id",
			ExpectedNulls: map[string]string{
				"purchase_order_id":       "Transaction not always linked to a PO",
				"supplier_invoice_number": "Not all transactions have an invoice",
				"finalization_date":       "Transaction not yet finalized",
			},
			RequiredValues: []string{"supplier_transaction_id", "supplier_id", "transaction_date", "transaction_amount"},
		}),
	}
}

func builtinDimensions() []TableSpec {
	return []TableSpec{
		bespoke(TableSpec{
			Name:   "cities",
			Domain: DomainDimensions,
			Source: "application.cities",
			Target: "cities.parquet",
			Columns: renames(nil,
				"CityID", "CityName", "StateProvinceID", "Location", "LatestRecordedPopulation",
				"LastEditedBy", "ValidFrom", "ValidTo"),
			Temporal:    []string{validFrom, "valid_to"},
			IDColumns:   []string{"latest_recorded_population"},
			TextColumns: []string{"city_name", "location"},
			PrimaryKey:  "city_id",
			ExpectedNulls: map[string]string{
				"latest_recorded_population": "Not all cities have population data",
				"valid_to":                   reasonActiveRecord,
			},
			RequiredValues: []string{"city_id", "city_name", "state_province_id"},
		}),
		bespoke(TableSpec{
			Name:   "provinces",
			Domain: DomainDimensions,
			Source: "application.province",
			Target: "provinces.parquet",
			Columns: renames(nil,
				"StateProvinceID", "StateProvinceCode", "StateProvinceName", "CountryID",
				"SalesTerritory", "Border", "LatestRecordedPopulation", "LastEditedBy",
				"ValidFrom", "ValidTo"),
			Temporal:    []string{validFrom, "valid_to"},
			TextColumns: []string{"state_province_code", "state_province_name", "sales_territory", "border"},
			PrimaryKey:  "state_province_id",
			ExpectedNulls: map[string]string{
				"border":   "GeoJSON border not always available",
				"valid_to": reasonActiveRecord,
			},
			RequiredValues: []string{"state_province_id", "state_province_name", "country_id"},
		}),
		bespoke(TableSpec{
			Name:   "people",
			Domain: DomainDimensions,
			Source: "application.people",
			Target: "people.parquet",
			Columns: renames(nil,
				"PersonID", "FullName", "PreferredName", "SearchName", "IsPermittedToLogon",
				"LogonName", "IsExternalLogonProvider", "IsSystemUser", "IsEmployee",
				"IsSalesperson", "PhoneNumber", "FaxNumber", "EmailAddress", "LastEditedBy",
				"ValidFrom", "ValidTo", "ValidFrom_parsed"),
			Temporal:    []string{validFrom, "valid_to"},
			TextColumns: []string{"full_name", "preferred_name", "search_name", "logon_name", "phone_number", "fax_number", "email_address"},
			PrimaryKey:  "person_id",
			ExpectedNulls: map[string]string{
				"valid_to": reasonActiveRecord,
			},
			RequiredValues: []string{"person_id", "full_name", "is_employee", "is_salesperson"},
			Rules:          []rules.Rule{rules.MergeParsed(validFrom, validFromParsed)},
		}),
		bespoke(TableSpec{
			Name:   "stock_items",
			Domain: DomainDimensions,
			Source: "warehouse.stockitems",
			Target: "stock_items.parquet",
			Columns: renames(nil,
				"StockItemID", "StockItemName", "SupplierID", "ColorID", "UnitPackageID",
				"OuterPackageID", "Brand", "Size", "LeadTimeDays", "QuantityPerOuter",
				"IsChillerStock", "Barcode", "TaxRate", "UnitPrice", "RecommendedRetailPrice",
				"TypicalWeightPerUnit", "MarketingComments", "CustomFields", "Tags",
				"SearchDetails", "LastEditedBy", "ValidFrom", "ValidTo"),
			Temporal:    []string{validFrom, "valid_to"},
			IDColumns:   []string{"color_id"},
			TextColumns: []string{"stock_item_name", "brand", "size", "barcode", "marketing_comments", "custom_fields", "tags", "search_details"},
			PrimaryKey:  "stock_item_id",
			ExpectedNulls: map[string]string{
				"color_id":           "Not all items have a color",
				"brand":              "Not all items have a brand",
				"size":               "Not all items have a size",
				"barcode":            "Not all items have a barcode",
				"marketing_comments": "Marketing comments optional",
				"valid_to":           reasonActiveRecord,
			},
			RequiredValues: []string{"stock_item_id", "stock_item_name", "supplier_id", "unit_price", "tax_rate"},
			Rules:          []rules.Rule{rules.NullifyTokens("barcode", "nan")},
		}),
		bespoke(TableSpec{
			Name:   "stock_item_holdings",
			Domain: DomainDimensions,
			Source: "warehouse.stockitemholdings",
			Target: "stock_item_holdings.parquet",
			Columns: renames(nil,
				"StockItemID", "QuantityOnHand", "BinLocation", "LastStocktakeQuantity",
				"LastCostPrice", "ReorderLevel", "TargetStockLevel", "LastEditedBy", "LastEditedWhen"),
			Temporal:       []string{lastEdited},
			TextColumns:    []string{"bin_location"},
			PrimaryKey:     "stock_item_id",
			RequiredValues: []string{"stock_item_id", "quantity_on_hand", "reorder_level", "target_stock_level", "last_cost_price"},
		}),
	}
}

// Builtin returns the code-declared table specs in run order
func Builtin() []TableSpec {
	var out []TableSpec
	out = append(out, builtinSales()...)
	out = append(out, builtinPurchasing()...)
	out = append(out, builtinDimensions()...)
	return out
}
