package testutil

import "github.com/askdb/askdb/internal/schema"

// SampleTables returns the five-table sales/warehouse schema used across
// tests: three plain sales tables followed by the two aliased warehouse and
// maintenance tables. Snapshot order matters to selection tests.
func SampleTables() []schema.Table {
	return []schema.Table{
		NewTable("Products",
			WithComment("产品信息表，存储所有销售产品的详细信息"),
			WithRequiredColumn("ProductID", "INT", 0, "产品唯一标识"),
			WithColumn("ProductName", "NVARCHAR", 100, "产品名称"),
			WithColumn("Category", "NVARCHAR", 50, "产品类别"),
			WithColumn("Price", "DECIMAL", 0, "产品单价"),
			WithColumn("Stock", "INT", 0, "库存数量"),
		),
		NewTable("Orders",
			WithComment("订单主表，记录每笔销售订单的基本信息"),
			WithRequiredColumn("OrderID", "INT", 0, "订单唯一标识"),
			WithColumn("CustomerName", "NVARCHAR", 100, "客户名称"),
			WithColumn("OrderDate", "DATETIME", 0, "订单日期"),
			WithColumn("TotalAmount", "DECIMAL", 0, "订单总金额"),
		),
		NewTable("OrderDetails",
			WithComment("订单明细表，记录每个订单包含的具体产品和数量"),
			WithRequiredColumn("DetailID", "INT", 0, "明细唯一标识"),
			WithColumn("OrderID", "INT", 0, "所属订单ID"),
			WithColumn("ProductID", "INT", 0, "产品ID"),
			WithColumn("Quantity", "INT", 0, "购买数量"),
			WithColumn("UnitPrice", "DECIMAL", 0, "成交单价"),
		),
		NewTable("WmsDeliverynoteDetail",
			WithComment("送货单明细表，记录供应商送货的物料明细"),
			WithRequiredColumn("DeliveryNoteNo", "NVARCHAR", 50, "送货单号"),
			WithColumn("MaterialCode", "NVARCHAR", 50, "物料编码"),
			WithColumn("Quantity", "DECIMAL", 0, "送货数量"),
			WithColumn("DeliveryDate", "DATETIME", 0, "送货日期"),
		),
		NewTable("MesMachineMaintain",
			WithComment("设备维修记录表，记录生产设备的维修历史"),
			WithRequiredColumn("MachineNo", "NVARCHAR", 50, "设备编号"),
			WithColumn("FaultDesc", "NVARCHAR", 500, "故障描述"),
			WithColumn("RepairDate", "DATETIME", 0, "维修日期"),
		),
	}
}

// SampleSnapshot returns the sample schema as a snapshot.
func SampleSnapshot() *schema.Snapshot {
	return NewSnapshot(SampleTables()...)
}

// SampleSourceJSON returns the canonical JSON source of the sample schema,
// for tests exercising parsing and cache-key derivation.
func SampleSourceJSON() []byte {
	src, err := schema.MarshalSource(SampleTables())
	if err != nil {
		panic(err)
	}

	return src
}

// SampleAliases returns the alias map matching the sample schema.
func SampleAliases() map[string][]string {
	return map[string][]string{
		"WmsDeliverynoteDetail": {"送货单", "送货明细", "送货单明细", "送货"},
		"MesMachineMaintain":    {"设备维修", "维修记录", "设备维修记录", "维修"},
	}
}
