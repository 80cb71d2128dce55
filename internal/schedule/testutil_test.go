package schedule

import (
	"github.com/shopspring/decimal"

	"github.com/sells-group/salestax/internal/model"
	"github.com/sells-group/salestax/internal/rate"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// fixture is a small schedule covering every lookup tier.
func fixture() *Schedule {
	p := model.DefaultPolicy()
	return New(p, []model.ScheduleRecord{
		rate.Record(p, "Albany", "", "0181", d("0.08"), false),
		rate.Record(p, "Westchester", "", "5500", d("0.08375"), true),
		rate.Record(p, "Westchester", "Yonkers", "6511", d("0.08875"), true),
		rate.Record(p, "Kings (Brooklyn)", "", "8081", d("0.08875"), true),
		rate.Record(p, "New York State only", "", "", d("0.04"), false),
	})
}
