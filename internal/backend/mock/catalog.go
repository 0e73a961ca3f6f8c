package mock

import (
	"github.com/vladislavdragonenkov/foodorder/internal/client"
	"github.com/vladislavdragonenkov/foodorder/internal/domain"
)

func seedCatalog() []domain.Category {
	return []domain.Category{
		{
			ID: 1, Name: "Пицца", Position: 1, IsActive: true,
			Items: []domain.MenuItem{
				{
					ID: 1, CategoryID: 1, Name: "Маргарита", Price: 1299, IsAvailable: true, PreparationTime: 15,
					Variations: []domain.Variation{
						{ID: 11, Name: "30 см", PriceDifference: 0, IsAvailable: true},
						{ID: 12, Name: "40 см", PriceDifference: 400, IsAvailable: true},
					},
				},
				{
					ID: 2, CategoryID: 1, Name: "Пепперони", Price: 1499, IsAvailable: true, PreparationTime: 15,
					Variations: []domain.Variation{
						{ID: 21, Name: "30 см", PriceDifference: 0, IsAvailable: true},
						{ID: 22, Name: "40 см", PriceDifference: 450, IsAvailable: false},
					},
				},
			},
		},
		{
			ID: 2, Name: "Напитки", Position: 2, IsActive: true,
			Items: []domain.MenuItem{
				{ID: 3, CategoryID: 2, Name: "Лимонад", Price: 350, IsAvailable: true, PreparationTime: 2},
				{ID: 4, CategoryID: 2, Name: "Морс", Price: 290, IsAvailable: true, IsOnStopList: true, PreparationTime: 2},
			},
		},
	}
}

func toMenuItemDTO(item domain.MenuItem) client.MenuItemDTO {
	dto := client.MenuItemDTO{
		ID:              item.ID,
		CategoryID:      item.CategoryID,
		Name:            item.Name,
		Description:     item.Description,
		Price:           item.Price,
		ImageURL:        item.ImageURL,
		IsAvailable:     item.IsAvailable,
		IsOnStopList:    item.IsOnStopList,
		PreparationTime: item.PreparationTime,
		Variations:      make([]client.VariationDTO, 0, len(item.Variations)),
	}
	for _, v := range item.Variations {
		dto.Variations = append(dto.Variations, client.VariationDTO{
			ID:              v.ID,
			Name:            v.Name,
			PriceDifference: v.PriceDifference,
			IsAvailable:     v.IsAvailable,
		})
	}
	return dto
}

func toCategoryDTO(category domain.Category) client.CategoryDTO {
	dto := client.CategoryDTO{
		ID:          category.ID,
		Name:        category.Name,
		Description: category.Description,
		Position:    category.Position,
		IsActive:    category.IsActive,
	}
	for _, item := range category.Items {
		dto.Items = append(dto.Items, toMenuItemDTO(item))
	}
	return dto
}
